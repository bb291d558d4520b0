// Package brokers manages configured broker connections and resolves which
// one new orders are routed through.
package brokers

import (
	"time"

	"gorm.io/gorm"

	"github.com/prabhupmb/option-trading-sub000/internal/models"
)

// Service defines CRUD operations over a user's broker connections
type Service interface {
	List(userID uint) ([]models.BrokerConnection, error)
	Get(id uint) (*models.BrokerConnection, error)
	Create(conn models.BrokerConnection) (*models.BrokerConnection, error)
	Update(conn models.BrokerConnection) (*models.BrokerConnection, error)
	Delete(id uint) error
}

// service implements the Service interface
type service struct {
	db *gorm.DB
}

// NewService creates a new broker connection service
func NewService(db *gorm.DB) Service {
	return &service{db: db}
}

// List returns the user's connections, default first, then newest first.
func (s *service) List(userID uint) ([]models.BrokerConnection, error) {
	var conns []models.BrokerConnection
	result := s.db.Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(&conns)
	if result.Error != nil {
		return nil, result.Error
	}
	return conns, nil
}

// Get returns a connection by ID
func (s *service) Get(id uint) (*models.BrokerConnection, error) {
	var conn models.BrokerConnection
	if err := s.db.First(&conn, id).Error; err != nil {
		return nil, err
	}
	return &conn, nil
}

// Create creates a new broker connection. When the new connection is marked
// default, any other default for the same user is cleared in the same
// transaction so at most one default exists per user.
func (s *service) Create(conn models.BrokerConnection) (*models.BrokerConnection, error) {
	conn.CreatedAt = time.Now()
	conn.UpdatedAt = time.Now()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if conn.IsDefault {
			if err := clearOtherDefaults(tx, conn.UserID, 0); err != nil {
				return err
			}
		}
		return tx.Create(&conn).Error
	})
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// Update updates an existing broker connection, keeping the single-default
// invariant.
func (s *service) Update(conn models.BrokerConnection) (*models.BrokerConnection, error) {
	var existing models.BrokerConnection
	if err := s.db.First(&existing, conn.ID).Error; err != nil {
		return nil, err
	}

	conn.UserID = existing.UserID
	conn.CreatedAt = existing.CreatedAt
	conn.UpdatedAt = time.Now()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if conn.IsDefault {
			if err := clearOtherDefaults(tx, conn.UserID, conn.ID); err != nil {
				return err
			}
		}
		return tx.Save(&conn).Error
	})
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// Delete deletes a broker connection
func (s *service) Delete(id uint) error {
	return s.db.Delete(&models.BrokerConnection{}, id).Error
}

func clearOtherDefaults(tx *gorm.DB, userID, keepID uint) error {
	q := tx.Model(&models.BrokerConnection{}).
		Where("user_id = ? AND is_default = ?", userID, true)
	if keepID != 0 {
		q = q.Where("id <> ?", keepID)
	}
	return q.Update("is_default", false).Error
}
