package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/freshcorner/internal/apperr"
	"github.com/example/freshcorner/internal/models"
)

// Movement describes one change to a product's stock counter.
type Movement struct {
	ProductID   uuid.UUID
	Delta       int
	Type        string
	WarehouseID *uuid.UUID
	OrderID     *uuid.UUID
	ActorID     *uuid.UUID
	Notes       string
}

// StockLedger is the only writer of products.stock_quantity.
type StockLedger struct{}

// NewStockLedger constructs StockLedger.
func NewStockLedger() *StockLedger {
	return &StockLedger{}
}

// Apply adjusts the product counter by m.Delta inside tx and appends a
// stock_movements row. The update is guarded so stock never goes negative.
func (l *StockLedger) Apply(tx *gorm.DB, m Movement) (*models.StockMovement, error) {
	var product models.Product
	if err := tx.Select("id", "name_en", "stock_quantity").
		First(&product, "id = ?", m.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound.WithMessage("product not found")
		}
		return nil, apperr.Unexpected(err, "load product stock")
	}

	res := tx.Model(&models.Product{}).
		Where("id = ? AND stock_quantity + ? >= 0", m.ProductID, m.Delta).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", m.Delta))
	if res.Error != nil {
		return nil, apperr.Unexpected(res.Error, "update product stock")
	}
	if res.RowsAffected == 0 {
		return nil, apperr.ErrInsufficientStock.WithMessage(fmt.Sprintf("%s: insufficient stock", product.NameEn))
	}

	var newStock int
	if err := tx.Model(&models.Product{}).
		Select("stock_quantity").
		Where("id = ?", m.ProductID).
		Scan(&newStock).Error; err != nil {
		return nil, apperr.Unexpected(err, "reload product stock")
	}

	movement := &models.StockMovement{
		ProductID:     m.ProductID,
		WarehouseID:   m.WarehouseID,
		OrderID:       m.OrderID,
		MovementType:  m.Type,
		Quantity:      m.Delta,
		PreviousStock: newStock - m.Delta,
		NewStock:      newStock,
		Notes:         m.Notes,
		CreatedBy:     m.ActorID,
	}
	if err := tx.Create(movement).Error; err != nil {
		return nil, apperr.Unexpected(err, "record stock movement")
	}

	return movement, nil
}
