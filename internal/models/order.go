package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order statuses.
const (
	OrderPending    = "pending"
	OrderConfirmed  = "confirmed"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []string{
	OrderPending, OrderConfirmed, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled,
}

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"

	PaymentCashOnDelivery = "cash_on_delivery"
)

type Order struct {
	BaseModel
	UserID          uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	User            *User           `json:"user,omitempty"`
	OrderNumber     string          `gorm:"uniqueIndex;not null" json:"order_number"`
	Status          string          `gorm:"index;not null" json:"status"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentStatus   string          `json:"payment_status"`
	Subtotal        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	DeliveryFee     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"delivery_fee"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	DeliveryName    string          `json:"delivery_name"`
	DeliveryPhone   string          `json:"delivery_phone"`
	DeliveryAddress string          `json:"delivery_address"`
	Notes           string          `json:"notes"`
	ConfirmedAt     *time.Time      `json:"confirmed_at"`
	DeliveredAt     *time.Time      `json:"delivered_at"`
	CancelledAt     *time.Time      `json:"cancelled_at"`
	Items           []OrderItem     `json:"items,omitempty"`
}

type OrderItem struct {
	BaseModel
	OrderID       uuid.UUID       `gorm:"type:uuid;index;not null" json:"order_id"`
	ProductID     uuid.UUID       `gorm:"type:uuid;index;not null" json:"product_id"`
	ProductName   string          `json:"product_name"`
	ProductNameEn string          `json:"product_name_en"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Subtotal      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
}

// Cart holds a user's pending purchase lines. One cart per user.
type Cart struct {
	BaseModel
	UserID uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Items  []CartItem `json:"items,omitempty"`
}

// CartItem stores the unit price captured when the product was first added.
type CartItem struct {
	BaseModel
	CartID    uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_cart_product;not null" json:"cart_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_cart_product;not null" json:"product_id"`
	Product   *Product        `json:"product,omitempty"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
}
