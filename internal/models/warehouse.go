package models

import (
	"time"

	"github.com/google/uuid"
)

type Warehouse struct {
	BaseModel
	Name         string `gorm:"not null" json:"name"`
	NameBn       string `json:"name_bn"`
	Address      string `json:"address"`
	ManagerName  string `json:"manager_name"`
	ManagerPhone string `json:"manager_phone"`
	IsActive     bool   `gorm:"index" json:"is_active"`
}

// WarehouseInventory is the per-location quantity of a product.
type WarehouseInventory struct {
	BaseModel
	WarehouseID   uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_warehouse_product;not null" json:"warehouse_id"`
	Warehouse     *Warehouse `json:"warehouse,omitempty"`
	ProductID     uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_warehouse_product;not null" json:"product_id"`
	Product       *Product   `json:"product,omitempty"`
	StockQuantity int        `gorm:"not null;default:0" json:"stock_quantity"`
	MinStockLevel int        `gorm:"not null;default:10" json:"min_stock_level"`
	ExpiryDate    *time.Time `gorm:"index" json:"expiry_date"`
	BatchNumber   string     `json:"batch_number"`
}

func (WarehouseInventory) TableName() string {
	return "warehouse_inventory"
}

// Expiry alert tiers.
const (
	AlertCritical = "critical"
	AlertWarning  = "warning"
	AlertInfo     = "info"
)

type ExpiryAlert struct {
	BaseModel
	InventoryID uuid.UUID  `gorm:"type:uuid;index;not null" json:"inventory_id"`
	WarehouseID uuid.UUID  `gorm:"type:uuid;index;not null" json:"warehouse_id"`
	Warehouse   *Warehouse `json:"warehouse,omitempty"`
	ProductID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"product_id"`
	Product     *Product   `json:"product,omitempty"`
	AlertType   string     `gorm:"not null" json:"alert_type"`
	ExpiryDate  time.Time  `json:"expiry_date"`
	IsResolved  bool       `gorm:"index" json:"is_resolved"`
	ResolvedAt  *time.Time `json:"resolved_at"`
}
