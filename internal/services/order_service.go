package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/freshcorner/internal/apperr"
	"github.com/example/freshcorner/internal/models"
	"github.com/example/freshcorner/internal/utils"
)

const (
	orderNumberAttempts = 5
	notifyTimeout       = 15 * time.Second
)

// PlaceOrderInput is the checkout form.
type PlaceOrderInput struct {
	DeliveryName    string `json:"delivery_name"`
	DeliveryPhone   string `json:"delivery_phone"`
	DeliveryAddress string `json:"delivery_address"`
	PaymentMethod   string `json:"payment_method"`
	Notes           string `json:"notes"`
}

// AdminOrder is an order row in the admin listing.
type AdminOrder struct {
	models.Order
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	ItemCount     int64  `json:"item_count"`
}

// OrderService runs checkout and the order lifecycle.
type OrderService struct {
	db       *gorm.DB
	ledger   *StockLedger
	notifier OrderNotifier
	log      *zap.Logger
	now      func() time.Time
	numbers  func(time.Time) string
}

// NewOrderService constructs OrderService. notifier may be nil.
func NewOrderService(db *gorm.DB, ledger *StockLedger, notifier OrderNotifier, log *zap.Logger) *OrderService {
	return &OrderService{
		db:       db,
		ledger:   ledger,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		numbers:  NewOrderNumber,
	}
}

// NewOrderNumber returns "ORD" + the last 8 digits of unix millis + 3 random digits.
func NewOrderNumber(now time.Time) string {
	suffix := 0
	if n, err := rand.Int(rand.Reader, big.NewInt(1000)); err == nil {
		suffix = int(n.Int64())
	}
	return fmt.Sprintf("ORD%08d%03d", now.UnixMilli()%100000000, suffix)
}

// IsValidStatus reports whether status is a known order status.
func IsValidStatus(status string) bool {
	for _, s := range models.OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func isTerminal(status string) bool {
	return status == models.OrderDelivered || status == models.OrderCancelled
}

// Place converts the user's cart into an order. Stock is decremented, the
// order and its items are written and the cart is emptied in one
// transaction; nothing persists on failure.
func (s *OrderService) Place(ctx context.Context, userID uuid.UUID, in PlaceOrderInput) (*models.Order, error) {
	in.DeliveryName = strings.TrimSpace(in.DeliveryName)
	in.DeliveryPhone = strings.TrimSpace(in.DeliveryPhone)
	in.DeliveryAddress = strings.TrimSpace(in.DeliveryAddress)
	if in.DeliveryName == "" || in.DeliveryPhone == "" || in.DeliveryAddress == "" {
		return nil, apperr.ErrMissingDeliveryInfo
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = models.PaymentCashOnDelivery
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrEmptyCart
			}
			return err
		}

		var lines []models.CartItem
		if err := tx.Preload("Product").
			Where("cart_id = ?", cart.ID).
			Order("created_at ASC, id ASC").
			Find(&lines).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return apperr.ErrEmptyCart
		}

		subtotal := decimal.Zero
		for _, line := range lines {
			if line.Product == nil {
				return apperr.ErrProductUnavailable
			}
			if line.Product.StockQuantity < line.Quantity {
				return apperr.ErrInsufficientStock.WithMessage(
					fmt.Sprintf("%s: insufficient stock", line.Product.NameEn))
			}
			subtotal = subtotal.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}

		deliveryFee := decimal.Zero
		order = models.Order{
			UserID:          userID,
			Status:          models.OrderPending,
			PaymentMethod:   in.PaymentMethod,
			PaymentStatus:   models.PaymentPending,
			Subtotal:        subtotal,
			DeliveryFee:     deliveryFee,
			TotalAmount:     subtotal.Add(deliveryFee),
			DeliveryName:    in.DeliveryName,
			DeliveryPhone:   in.DeliveryPhone,
			DeliveryAddress: in.DeliveryAddress,
			Notes:           strings.TrimSpace(in.Notes),
		}
		if err := s.createWithOrderNumber(tx, &order); err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			item := models.OrderItem{
				OrderID:       order.ID,
				ProductID:     line.ProductID,
				ProductName:   line.Product.NameBn,
				ProductNameEn: line.Product.NameEn,
				Quantity:      line.Quantity,
				UnitPrice:     line.Price,
				Subtotal:      line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))),
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			items = append(items, item)

			if _, err := s.ledger.Apply(tx, Movement{
				ProductID: line.ProductID,
				Delta:     -line.Quantity,
				Type:      models.MovementOrderPlaced,
				OrderID:   &order.ID,
				ActorID:   &userID,
			}); err != nil {
				return err
			}
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}

		order.Items = items
		return nil
	})
	if err != nil {
		return nil, apperr.Unexpected(err, "place order")
	}

	s.notifyNewOrder(order)
	return &order, nil
}

// createWithOrderNumber inserts order under a fresh number, retrying from a
// savepoint when the number is already taken.
func (s *OrderService) createWithOrderNumber(tx *gorm.DB, order *models.Order) error {
	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		order.OrderNumber = s.numbers(s.now())

		savepoint := fmt.Sprintf("order_number_%d", attempt)
		if err := tx.SavePoint(savepoint).Error; err != nil {
			return err
		}

		err := tx.Create(order).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		if err := tx.RollbackTo(savepoint).Error; err != nil {
			return err
		}
		s.log.Warn("order number collision", zap.String("order_number", order.OrderNumber), zap.Int("attempt", attempt))
	}

	return apperr.ErrInternal.WithMessage("could not allocate an order number")
}

// Transition moves an order to status. Leaving a terminal status is
// rejected; entering cancelled returns every item's quantity to stock.
func (s *OrderService) Transition(ctx context.Context, orderID uuid.UUID, status string, actorID uuid.UUID) (*models.Order, error) {
	if !IsValidStatus(status) {
		return nil, apperr.ErrInvalidStatus
	}

	var (
		order    models.Order
		previous string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked := tx
		if tx.Dialector.Name() == "postgres" {
			locked = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := locked.First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound.WithMessage("order not found")
			}
			return err
		}

		previous = order.Status
		if order.Status == status {
			return apperr.ErrNoOpTransition
		}
		if isTerminal(order.Status) {
			return apperr.ErrInvalidTransition.WithMessage(
				fmt.Sprintf("order is already %s", order.Status))
		}

		now := s.now()
		updates := map[string]interface{}{"status": status}
		switch status {
		case models.OrderConfirmed:
			updates["confirmed_at"] = now
			order.ConfirmedAt = &now
		case models.OrderDelivered:
			updates["delivered_at"] = now
			updates["payment_status"] = models.PaymentPaid
			order.DeliveredAt = &now
			order.PaymentStatus = models.PaymentPaid
		case models.OrderCancelled:
			updates["cancelled_at"] = now
			order.CancelledAt = &now
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
			return err
		}
		order.Status = status

		if err := tx.Where("order_id = ?", order.ID).Order("created_at ASC, id ASC").Find(&order.Items).Error; err != nil {
			return err
		}

		if status == models.OrderCancelled {
			for _, item := range order.Items {
				if _, err := s.ledger.Apply(tx, Movement{
					ProductID: item.ProductID,
					Delta:     item.Quantity,
					Type:      models.MovementOrderCancelled,
					OrderID:   &order.ID,
					ActorID:   &actorID,
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Unexpected(err, "update order status")
	}

	s.notifyStatusChange(order.OrderNumber, previous, status)
	return &order, nil
}

// ListOwn returns the user's orders, newest first.
func (s *OrderService) ListOwn(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Order, int64, error) {
	pg := utils.NewPagination(page, limit, 20)
	query := s.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Unexpected(err, "count orders")
	}

	orders := []models.Order{}
	if err := query.Preload("Items").
		Order("created_at DESC, id ASC").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, apperr.Unexpected(err, "list orders")
	}

	return orders, total, nil
}

// GetDetail returns one of the user's orders with items. Orders owned by
// someone else are reported as missing.
func (s *OrderService) GetDetail(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound.WithMessage("order not found")
		}
		return nil, apperr.Unexpected(err, "load order")
	}
	return &order, nil
}

// AdminList returns all orders, optionally by status, with customer
// contact and item counts.
func (s *OrderService) AdminList(ctx context.Context, status string, page, limit int) ([]AdminOrder, int64, error) {
	if status != "" && !IsValidStatus(status) {
		return nil, 0, apperr.ErrInvalidStatus
	}

	pg := utils.NewPagination(page, limit, 20)
	db := s.db.WithContext(ctx)

	query := db.Model(&models.Order{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Unexpected(err, "count orders")
	}

	var orders []models.Order
	if err := query.Preload("User").
		Order("created_at DESC, id ASC").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, apperr.Unexpected(err, "list orders")
	}

	counts, err := itemCounts(db, orders)
	if err != nil {
		return nil, 0, apperr.Unexpected(err, "count order items")
	}

	out := make([]AdminOrder, 0, len(orders))
	for _, o := range orders {
		row := AdminOrder{Order: o, ItemCount: counts[o.ID]}
		if o.User != nil {
			row.CustomerName = o.User.FullName
			row.CustomerPhone = o.User.Phone
		}
		row.Order.User = nil
		out = append(out, row)
	}

	return out, total, nil
}

func itemCounts(db *gorm.DB, orders []models.Order) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(orders))
	if len(orders) == 0 {
		return counts, nil
	}

	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	var rows []struct {
		OrderID uuid.UUID
		Count   int64
	}
	if err := db.Model(&models.OrderItem{}).
		Select("order_id, COUNT(*) AS count").
		Where("order_id IN ?", ids).
		Group("order_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, r := range rows {
		counts[r.OrderID] = r.Count
	}
	return counts, nil
}

func (s *OrderService) notifyNewOrder(order models.Order) {
	if s.notifier == nil {
		return
	}

	items := make([]OrderItemNotification, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemNotification{
			Name:     item.ProductNameEn,
			Quantity: item.Quantity,
			Price:    item.UnitPrice,
		})
	}
	notification := OrderNotification{
		OrderNumber:     order.OrderNumber,
		Items:           items,
		TotalAmount:     order.TotalAmount,
		CustomerName:    order.DeliveryName,
		CustomerPhone:   order.DeliveryPhone,
		DeliveryAddress: order.DeliveryAddress,
		PaymentMethod:   order.PaymentMethod,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyNewOrder(ctx, notification); err != nil {
			s.log.Warn("new order notification failed", zap.String("order_number", notification.OrderNumber), zap.Error(err))
		}
	}()
}

func (s *OrderService) notifyStatusChange(orderNumber, from, to string) {
	if s.notifier == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		change := StatusNotification{OrderNumber: orderNumber, From: from, To: to}
		if err := s.notifier.NotifyStatusChange(ctx, change); err != nil {
			s.log.Warn("status notification failed", zap.String("order_number", orderNumber), zap.Error(err))
		}
	}()
}
