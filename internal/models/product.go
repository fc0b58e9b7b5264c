package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable item. StockQuantity is the authoritative stock counter
// and only changes through the stock ledger.
type Product struct {
	BaseModel
	Slug          string              `gorm:"uniqueIndex;not null" json:"slug"`
	NameEn        string              `gorm:"not null" json:"name_en"`
	NameBn        string              `gorm:"not null" json:"name_bn"`
	DescriptionEn string              `json:"description_en"`
	DescriptionBn string              `json:"description_bn"`
	Price         decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"price"`
	DiscountPrice decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"discount_price"`
	StockQuantity int                 `gorm:"not null;default:0" json:"stock_quantity"`
	Unit          string              `json:"unit"`
	ImageURL      string              `json:"image_url"`
	CategoryID    *uuid.UUID          `gorm:"type:uuid;index" json:"category_id"`
	Category      *Category           `json:"category,omitempty"`
	IsAvailable   bool                `gorm:"index" json:"is_available"`
}

// Stock movement types.
const (
	MovementAdd            = "add"
	MovementRemove         = "remove"
	MovementSet            = "set"
	MovementOrderPlaced    = "order_placed"
	MovementOrderCancelled = "order_cancelled"
)

// StockMovement is an append-only audit row for every stock change.
type StockMovement struct {
	BaseModel
	ProductID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"product_id"`
	WarehouseID   *uuid.UUID `gorm:"type:uuid;index" json:"warehouse_id"`
	OrderID       *uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	MovementType  string     `gorm:"not null" json:"movement_type"`
	Quantity      int        `json:"quantity"`
	PreviousStock int        `json:"previous_stock"`
	NewStock      int        `json:"new_stock"`
	Notes         string     `json:"notes"`
	CreatedBy     *uuid.UUID `gorm:"type:uuid" json:"created_by"`
}
