package brokers

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/prabhupmb/option-trading-sub000/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.BrokerConnection{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestServiceCreateAndList(t *testing.T) {
	svc := NewService(setupTestDB(t))

	first, err := svc.Create(models.BrokerConnection{
		UserID: 1, Name: "alpaca-paper", Provider: "alpaca",
		Mode: models.BrokerModePaper, IsActive: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Spread created_at so ordering is deterministic under sqlite's
	// timestamp resolution.
	time.Sleep(5 * time.Millisecond)
	_, err = svc.Create(models.BrokerConnection{
		UserID: 1, Name: "tradier-live", Provider: "tradier",
		Mode: models.BrokerModeLive, IsActive: true, IsDefault: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	conns, err := svc.List(1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(conns) != 2 {
		t.Fatalf("len = %d, want 2", len(conns))
	}
	// Default first.
	if conns[0].Name != "tradier-live" {
		t.Errorf("first connection = %q, want the default", conns[0].Name)
	}

	// Other users see nothing.
	other, err := svc.List(2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("user 2 sees %d connections, want 0", len(other))
	}

	got, err := svc.Get(first.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "alpaca-paper" {
		t.Errorf("Get returned %q", got.Name)
	}
}

// A connection created explicitly inactive must stay inactive in the
// database; false is a zero value and must not be swallowed on insert.
func TestServiceCreatePersistsInactive(t *testing.T) {
	svc := NewService(setupTestDB(t))

	conn, err := svc.Create(models.BrokerConnection{
		UserID: 1, Name: "dormant", Provider: "alpaca",
		Mode: models.BrokerModePaper, IsActive: false,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.Get(conn.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.IsActive {
		t.Error("connection created with IsActive=false came back active")
	}

	conns, err := svc.List(1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(conns) != 1 || conns[0].IsActive {
		t.Errorf("listed connection = %+v, want inactive", conns)
	}
}

func TestServiceSingleDefaultInvariant(t *testing.T) {
	svc := NewService(setupTestDB(t))

	a, err := svc.Create(models.BrokerConnection{
		UserID: 1, Name: "a", Provider: "alpaca", IsActive: true, IsDefault: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := svc.Create(models.BrokerConnection{
		UserID: 1, Name: "b", Provider: "tradier", IsActive: true, IsDefault: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	conns, _ := svc.List(1)
	defaults := 0
	for _, c := range conns {
		if c.IsDefault {
			defaults++
			if c.ID != b.ID {
				t.Errorf("default is %q, want the most recently flagged", c.Name)
			}
		}
	}
	if defaults != 1 {
		t.Fatalf("defaults = %d, want exactly 1", defaults)
	}

	// Flipping the default back via Update clears the other one.
	a.IsDefault = true
	if _, err := svc.Update(*a); err != nil {
		t.Fatalf("Update: %v", err)
	}
	conns, _ = svc.List(1)
	for _, c := range conns {
		if c.IsDefault && c.ID != a.ID {
			t.Errorf("connection %q still default after reassignment", c.Name)
		}
	}
}

func TestServiceDefaultInvariantScopedPerUser(t *testing.T) {
	svc := NewService(setupTestDB(t))

	_, err := svc.Create(models.BrokerConnection{
		UserID: 1, Name: "u1", Provider: "alpaca", IsActive: true, IsDefault: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = svc.Create(models.BrokerConnection{
		UserID: 2, Name: "u2", Provider: "alpaca", IsActive: true, IsDefault: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// User 2's default must not disturb user 1's.
	conns, _ := svc.List(1)
	if len(conns) != 1 || !conns[0].IsDefault {
		t.Error("user 1 lost their default to another user's create")
	}
}

func TestServiceDelete(t *testing.T) {
	svc := NewService(setupTestDB(t))

	conn, err := svc.Create(models.BrokerConnection{
		UserID: 1, Name: "a", Provider: "alpaca", IsActive: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(conn.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(conn.ID); err == nil {
		t.Error("Get after Delete should fail")
	}
}
