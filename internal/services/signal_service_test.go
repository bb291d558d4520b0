package services

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/prabhupmb/option-trading-sub000/internal/models"
)

func setupSignalDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.Signal{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestGetLatestSignals(t *testing.T) {
	db := setupSignalDB(t)
	svc := NewSignalService(db)

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	db.Create(&models.Signal{Symbol: "AAPL", Action: "BUY", IsLatest: true, AnalyzedAt: base.Add(time.Hour)})
	db.Create(&models.Signal{Symbol: "MSFT", Action: "SELL", IsLatest: true, AnalyzedAt: base.Add(2 * time.Hour)})
	// Historical row, excluded from the read model.
	db.Create(&models.Signal{Symbol: "AAPL", Action: "SELL", IsLatest: false, AnalyzedAt: base})

	signals, err := svc.GetLatestSignals()
	if err != nil {
		t.Fatalf("GetLatestSignals: %v", err)
	}
	if len(signals) != 2 {
		t.Fatalf("len = %d, want 2", len(signals))
	}
	// Newest analysis first.
	if signals[0].Symbol != "MSFT" || signals[1].Symbol != "AAPL" {
		t.Errorf("order = %s, %s; want MSFT, AAPL", signals[0].Symbol, signals[1].Symbol)
	}
}

func TestLatestTimestamps(t *testing.T) {
	db := setupSignalDB(t)
	svc := NewSignalService(db)

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	db.Create(&models.Signal{Symbol: "AAPL", IsLatest: true, AnalyzedAt: base})
	db.Create(&models.Signal{Symbol: "MSFT", IsLatest: true, AnalyzedAt: base.Add(time.Hour)})
	// Duplicate latest rows for one symbol; the newest must win.
	db.Create(&models.Signal{Symbol: "AAPL", IsLatest: true, AnalyzedAt: base.Add(2 * time.Hour)})

	stamps, err := svc.LatestTimestamps()
	if err != nil {
		t.Fatalf("LatestTimestamps: %v", err)
	}
	if len(stamps) != 2 {
		t.Fatalf("len = %d, want 2", len(stamps))
	}
	if !stamps["AAPL"].Equal(base.Add(2 * time.Hour)) {
		t.Errorf("AAPL = %v, want the newest of the duplicate rows", stamps["AAPL"])
	}
	if !stamps["MSFT"].Equal(base.Add(time.Hour)) {
		t.Errorf("MSFT = %v", stamps["MSFT"])
	}
}

func TestLatestTimestampsEmpty(t *testing.T) {
	svc := NewSignalService(setupSignalDB(t))
	stamps, err := svc.LatestTimestamps()
	if err != nil {
		t.Fatalf("LatestTimestamps: %v", err)
	}
	if len(stamps) != 0 {
		t.Errorf("len = %d, want 0", len(stamps))
	}
}
