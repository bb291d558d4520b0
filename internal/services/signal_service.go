package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/prabhupmb/option-trading-sub000/internal/models"
)

// SignalService defines read operations over persisted signals. Signals are
// produced by the external workflow service; this side never writes them.
type SignalService interface {
	GetLatestSignals() ([]models.Signal, error)
	// LatestTimestamps returns the analyzed-at timestamp per symbol for the
	// latest signal records, feeding the scan tracker's snapshot and polls.
	LatestTimestamps() (map[string]time.Time, error)
}

// signalService implements the SignalService interface
type signalService struct {
	db *gorm.DB
}

// NewSignalService creates a new signal service
func NewSignalService(db *gorm.DB) SignalService {
	return &signalService{db: db}
}

// GetLatestSignals returns the latest signal per tracked symbol
func (s *signalService) GetLatestSignals() ([]models.Signal, error) {
	var signals []models.Signal
	result := s.db.Where("is_latest = ?", true).
		Order("analyzed_at DESC").
		Find(&signals)
	return signals, result.Error
}

// LatestTimestamps returns symbol → analyzed-at for the latest records. When
// a symbol somehow carries several latest rows, the newest timestamp wins.
func (s *signalService) LatestTimestamps() (map[string]time.Time, error) {
	signals, err := s.GetLatestSignals()
	if err != nil {
		return nil, err
	}
	stamps := make(map[string]time.Time, len(signals))
	for _, sig := range signals {
		if prev, ok := stamps[sig.Symbol]; !ok || sig.AnalyzedAt.After(prev) {
			stamps[sig.Symbol] = sig.AnalyzedAt
		}
	}
	return stamps, nil
}
