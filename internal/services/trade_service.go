package services

import (
	"gorm.io/gorm"

	"github.com/prabhupmb/option-trading-sub000/internal/models"
)

// TradeService defines the interface for the trade history log
type TradeService interface {
	GetTrades(user string) ([]models.TradeOrder, error)
	GetTradeByID(id uint) (models.TradeOrder, error)
	Record(order models.TradeOrder) (models.TradeOrder, error)
}

// tradeService implements the TradeService interface
type tradeService struct {
	db *gorm.DB
}

// NewTradeService creates a new trade service
func NewTradeService(db *gorm.DB) TradeService {
	return &tradeService{
		db: db,
	}
}

// GetTrades returns the user's recorded trades, newest first
func (s *tradeService) GetTrades(user string) ([]models.TradeOrder, error) {
	var trades []models.TradeOrder
	result := s.db.Where("\"user\" = ?", user).Order("created_at DESC").Find(&trades)
	return trades, result.Error
}

// GetTradeByID returns a trade by ID
func (s *tradeService) GetTradeByID(id uint) (models.TradeOrder, error) {
	var trade models.TradeOrder
	result := s.db.First(&trade, id)
	return trade, result.Error
}

// Record appends an accepted order to the trade history
func (s *tradeService) Record(order models.TradeOrder) (models.TradeOrder, error) {
	result := s.db.Create(&order)
	return order, result.Error
}
