package models

import (
	"time"
)

// Signal represents one computed trading signal for a symbol. Signals are
// written by the external workflow service; this side only reads them for
// display and for scan-progress tracking.
type Signal struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Symbol     string    `json:"symbol" gorm:"index"`
	Action     string    `json:"action"`
	Confidence float64   `json:"confidence"`
	Price      float64   `json:"price"`
	IsLatest   bool      `json:"isLatest" gorm:"column:is_latest;index"`
	AnalyzedAt time.Time `json:"analyzedAt" gorm:"column:analyzed_at"`
	CreatedAt  time.Time `json:"createdAt" gorm:"column:created_at"`
	UpdatedAt  time.Time `json:"updatedAt" gorm:"column:updated_at"`
}

// TableName specifies the table name for Signal model
func (Signal) TableName() string {
	return "signals"
}
