package models

import (
	"time"
)

// Broker trading modes.
const (
	BrokerModePaper = "paper"
	BrokerModeLive  = "live"
)

// BrokerConnection represents a configured broker credential set that orders
// are routed through. The credentials themselves live with the execution
// service; this side only keeps routing metadata.
type BrokerConnection struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `json:"userId" gorm:"column:user_id;index"`
	Name      string    `json:"name"`
	Provider  string    `json:"provider"`
	Mode      string    `json:"mode" gorm:"default:paper"`
	// No gorm default here: with one, an explicit IsActive=false is a
	// zero value gorm skips on insert, and the row comes back active.
	IsActive  bool      `json:"isActive" gorm:"column:is_active"`
	IsDefault bool      `json:"isDefault" gorm:"column:is_default;default:false"`
	CreatedAt time.Time `json:"createdAt" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"column:updated_at"`
}

// TableName specifies the table name for BrokerConnection model
func (BrokerConnection) TableName() string {
	return "broker_connections"
}

// IsLive reports whether orders through this connection hit a real account.
func (c *BrokerConnection) IsLive() bool {
	return c.Mode == BrokerModeLive
}

// BrokerConnectionRequest is used for creating and updating broker connections
type BrokerConnectionRequest struct {
	Name      string `json:"name" binding:"required"`
	Provider  string `json:"provider" binding:"required"`
	Mode      string `json:"mode"`
	IsActive  *bool  `json:"isActive,omitempty"`
	IsDefault *bool  `json:"isDefault,omitempty"`
}
