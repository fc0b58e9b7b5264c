package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/freshcorner/internal/apperr"
	"github.com/example/freshcorner/internal/models"
)

// Expiry statuses derived from an inventory row's expiry date.
const (
	ExpiryNone     = "none"
	ExpiryExpired  = "expired"
	ExpiryCritical = "critical"
	ExpiryWarning  = "warning"
	ExpiryGood     = "good"
)

const (
	day              = 24 * time.Hour
	alertHorizonDays = 14
	criticalDays     = 3
	warningDays      = 7
)

// WarehouseSummary is a warehouse with aggregate stock figures.
type WarehouseSummary struct {
	models.Warehouse `gorm:"embedded"`
	ProductCount     int64 `json:"product_count"`
	TotalStock       int64 `json:"total_stock"`
}

// InventoryView is an inventory row with derived expiry fields.
type InventoryView struct {
	models.WarehouseInventory
	ExpiryStatus    string `json:"expiry_status"`
	DaysUntilExpiry *int   `json:"days_until_expiry"`
}

// StockAdjustment is an admin change to one warehouse row.
type StockAdjustment struct {
	WarehouseID uuid.UUID
	ProductID   uuid.UUID
	Mode        string
	Quantity    int
	ActorID     uuid.UUID
	Notes       string
}

// StockAdjustmentResult reports the warehouse and global stock after an adjustment.
type StockAdjustmentResult struct {
	PreviousStock int                   `json:"previous_stock"`
	NewStock      int                   `json:"new_stock"`
	ProductStock  int                   `json:"product_stock"`
	Movement      *models.StockMovement `json:"movement"`
}

// ExpiryAlertSummary counts unresolved alerts per tier.
type ExpiryAlertSummary struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
}

// ExpiryAlerts groups unresolved alerts by tier.
type ExpiryAlerts struct {
	Critical []models.ExpiryAlert `json:"critical"`
	Warning  []models.ExpiryAlert `json:"warning"`
	Info     []models.ExpiryAlert `json:"info"`
	Summary  ExpiryAlertSummary   `json:"summary"`
}

// WarehouseService reads and adjusts per-location inventory.
type WarehouseService struct {
	db     *gorm.DB
	ledger *StockLedger
	now    func() time.Time
}

// NewWarehouseService constructs WarehouseService.
func NewWarehouseService(db *gorm.DB, ledger *StockLedger) *WarehouseService {
	return &WarehouseService{db: db, ledger: ledger, now: time.Now}
}

// ExpiryStatus classifies an expiry date relative to now. Days are whole
// days remaining, truncated.
func ExpiryStatus(expiry *time.Time, now time.Time) (string, *int) {
	if expiry == nil {
		return ExpiryNone, nil
	}

	remaining := expiry.Sub(now)
	days := int(remaining / day)

	switch {
	case remaining <= 0:
		return ExpiryExpired, &days
	case remaining <= criticalDays*day:
		return ExpiryCritical, &days
	case remaining <= warningDays*day:
		return ExpiryWarning, &days
	default:
		return ExpiryGood, &days
	}
}

// ComputeAdjustedStock applies mode to current. Removal floors at zero.
func ComputeAdjustedStock(mode string, current, quantity int) (int, error) {
	if quantity < 0 {
		return 0, apperr.Validation("quantity cannot be negative")
	}

	switch mode {
	case models.MovementAdd:
		return current + quantity, nil
	case models.MovementRemove:
		if quantity > current {
			return 0, nil
		}
		return current - quantity, nil
	case models.MovementSet:
		return quantity, nil
	default:
		return 0, apperr.Validation("adjustment type must be add, remove or set")
	}
}

// ListWarehouses returns active warehouses with product count and stock total.
func (s *WarehouseService) ListWarehouses(ctx context.Context) ([]WarehouseSummary, error) {
	summaries := []WarehouseSummary{}
	err := s.db.WithContext(ctx).Raw(`
		SELECT w.*, COUNT(wi.id) AS product_count, COALESCE(SUM(wi.stock_quantity), 0) AS total_stock
		FROM warehouses w
		LEFT JOIN warehouse_inventory wi ON wi.warehouse_id = w.id
		WHERE w.is_active = ?
		GROUP BY w.id
		ORDER BY w.created_at ASC, w.id ASC`, true).
		Scan(&summaries).Error
	if err != nil {
		return nil, apperr.Unexpected(err, "list warehouses")
	}
	return summaries, nil
}

// ListInventory returns a warehouse's rows, soonest expiry first.
func (s *WarehouseService) ListInventory(ctx context.Context, warehouseID uuid.UUID) ([]InventoryView, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Warehouse{}).Where("id = ?", warehouseID).Count(&count).Error; err != nil {
		return nil, apperr.Unexpected(err, "load warehouse")
	}
	if count == 0 {
		return nil, apperr.ErrNotFound.WithMessage("warehouse not found")
	}

	var rows []models.WarehouseInventory
	if err := db.Preload("Product").
		Where("warehouse_id = ?", warehouseID).
		Order("expiry_date IS NULL, expiry_date ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, apperr.Unexpected(err, "list inventory")
	}

	now := s.now()
	views := make([]InventoryView, 0, len(rows))
	for _, row := range rows {
		status, days := ExpiryStatus(row.ExpiryDate, now)
		views = append(views, InventoryView{WarehouseInventory: row, ExpiryStatus: status, DaysUntilExpiry: days})
	}
	return views, nil
}

// AdjustStock changes one warehouse row and moves the product's global
// counter by the same delta through the ledger. A decrease larger than the
// global counter only draws it down to zero, so a warehouse row can always be
// corrected after orders have consumed the product's stock.
func (s *WarehouseService) AdjustStock(ctx context.Context, adj StockAdjustment) (*StockAdjustmentResult, error) {
	if _, err := ComputeAdjustedStock(adj.Mode, 0, adj.Quantity); err != nil {
		return nil, err
	}

	var result StockAdjustmentResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv models.WarehouseInventory
		if err := tx.Where("warehouse_id = ? AND product_id = ?", adj.WarehouseID, adj.ProductID).
			First(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound.WithMessage("product not found in warehouse")
			}
			return err
		}

		previous := inv.StockQuantity
		next, err := ComputeAdjustedStock(adj.Mode, previous, adj.Quantity)
		if err != nil {
			return err
		}

		delta, err := globalDelta(tx, adj.ProductID, next-previous)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.WarehouseInventory{}).
			Where("id = ?", inv.ID).
			Update("stock_quantity", next).Error; err != nil {
			return err
		}

		warehouseID := adj.WarehouseID
		var actorID *uuid.UUID
		if adj.ActorID != uuid.Nil {
			id := adj.ActorID
			actorID = &id
		}
		movement, err := s.ledger.Apply(tx, Movement{
			ProductID:   adj.ProductID,
			Delta:       delta,
			Type:        adj.Mode,
			WarehouseID: &warehouseID,
			ActorID:     actorID,
			Notes:       adj.Notes,
		})
		if err != nil {
			return err
		}

		result = StockAdjustmentResult{
			PreviousStock: previous,
			NewStock:      next,
			ProductStock:  movement.NewStock,
			Movement:      movement,
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Unexpected(err, "adjust stock")
	}

	return &result, nil
}

// globalDelta limits a decrease to what the product counter still holds.
func globalDelta(tx *gorm.DB, productID uuid.UUID, delta int) (int, error) {
	if delta >= 0 {
		return delta, nil
	}

	var product models.Product
	if err := tx.Select("id", "stock_quantity").First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.ErrNotFound.WithMessage("product not found")
		}
		return 0, err
	}
	if product.StockQuantity+delta < 0 {
		return -product.StockQuantity, nil
	}
	return delta, nil
}

// ListLowStock returns rows at or below their minimum level, emptiest first.
func (s *WarehouseService) ListLowStock(ctx context.Context) ([]models.WarehouseInventory, error) {
	rows := []models.WarehouseInventory{}
	if err := s.db.WithContext(ctx).
		Preload("Product").
		Preload("Warehouse").
		Where("stock_quantity <= min_stock_level").
		Order("stock_quantity ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, apperr.Unexpected(err, "list low stock")
	}
	return rows, nil
}

// ListExpiryAlerts returns unresolved alerts grouped by tier.
func (s *WarehouseService) ListExpiryAlerts(ctx context.Context) (*ExpiryAlerts, error) {
	var alerts []models.ExpiryAlert
	if err := s.db.WithContext(ctx).
		Preload("Product").
		Preload("Warehouse").
		Where("is_resolved = ?", false).
		Order("expiry_date ASC, id ASC").
		Find(&alerts).Error; err != nil {
		return nil, apperr.Unexpected(err, "list expiry alerts")
	}

	out := &ExpiryAlerts{
		Critical: []models.ExpiryAlert{},
		Warning:  []models.ExpiryAlert{},
		Info:     []models.ExpiryAlert{},
	}
	for _, a := range alerts {
		switch a.AlertType {
		case models.AlertCritical:
			out.Critical = append(out.Critical, a)
		case models.AlertWarning:
			out.Warning = append(out.Warning, a)
		default:
			out.Info = append(out.Info, a)
		}
	}
	out.Summary = ExpiryAlertSummary{
		Total:    len(alerts),
		Critical: len(out.Critical),
		Warning:  len(out.Warning),
		Info:     len(out.Info),
	}
	return out, nil
}

// alertTier maps remaining time to an alert tier; expired rows are critical.
func alertTier(expiry, now time.Time) (string, bool) {
	remaining := expiry.Sub(now)
	switch {
	case remaining <= criticalDays*day:
		return models.AlertCritical, true
	case remaining <= warningDays*day:
		return models.AlertWarning, true
	case remaining <= alertHorizonDays*day:
		return models.AlertInfo, true
	default:
		return "", false
	}
}

// RefreshExpiryAlerts keeps one unresolved alert per inventory row expiring
// within the alert horizon and returns how many rows are alerted.
func (s *WarehouseService) RefreshExpiryAlerts(ctx context.Context) (int, error) {
	now := s.now()
	refreshed := 0

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.WarehouseInventory
		if err := tx.Where("expiry_date IS NOT NULL AND expiry_date <= ?", now.Add(alertHorizonDays*day)).
			Find(&rows).Error; err != nil {
			return err
		}

		for _, row := range rows {
			tier, ok := alertTier(*row.ExpiryDate, now)
			if !ok {
				continue
			}

			var alert models.ExpiryAlert
			err := tx.Where("inventory_id = ? AND is_resolved = ?", row.ID, false).First(&alert).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				alert = models.ExpiryAlert{
					InventoryID: row.ID,
					WarehouseID: row.WarehouseID,
					ProductID:   row.ProductID,
					AlertType:   tier,
					ExpiryDate:  *row.ExpiryDate,
				}
				if err := tx.Create(&alert).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				if err := tx.Model(&alert).Updates(map[string]interface{}{
					"alert_type":  tier,
					"expiry_date": *row.ExpiryDate,
				}).Error; err != nil {
					return err
				}
			}
			refreshed++
		}
		return nil
	})
	if err != nil {
		return 0, apperr.Unexpected(err, "refresh expiry alerts")
	}

	return refreshed, nil
}

// ResolveAlert marks an alert handled.
func (s *WarehouseService) ResolveAlert(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.ExpiryAlert{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_resolved": true, "resolved_at": s.now()})
	if res.Error != nil {
		return apperr.Unexpected(res.Error, "resolve alert")
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound.WithMessage("alert not found")
	}
	return nil
}
