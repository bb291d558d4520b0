package models

import (
	"time"
)

// TradeOrder is the persisted record of an order that was accepted by the
// execution service, kept for the dashboard's trade history.
type TradeOrder struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OrderID    string    `json:"orderId" gorm:"column:order_id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	Kind       string    `json:"kind"` // equity | option
	Quantity   int       `json:"quantity"`
	Price      float64   `json:"price"`
	Cost       float64   `json:"cost"`
	Status     string    `json:"status" gorm:"default:submitted"`
	BrokerID   uint      `json:"brokerId" gorm:"column:broker_id"`
	BrokerName string    `json:"brokerName" gorm:"column:broker_name"`
	BrokerMode string    `json:"brokerMode" gorm:"column:broker_mode"`
	SignalID   *uint     `json:"signalId,omitempty" gorm:"column:signal_id"`
	User       string    `json:"user"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TableName specifies the table name for TradeOrder model
func (TradeOrder) TableName() string {
	return "trade_orders"
}
