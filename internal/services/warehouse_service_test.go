package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/freshcorner/internal/apperr"
	"github.com/example/freshcorner/internal/models"
)

func seedWarehouse(t *testing.T, db *gorm.DB, name string) models.Warehouse {
	t.Helper()
	w := models.Warehouse{Name: name, Address: name + " road", IsActive: true}
	require.NoError(t, db.Create(&w).Error)
	return w
}

func seedInventory(t *testing.T, db *gorm.DB, w models.Warehouse, p models.Product, qty int, expiry *time.Time) models.WarehouseInventory {
	t.Helper()
	inv := models.WarehouseInventory{
		WarehouseID:   w.ID,
		ProductID:     p.ID,
		StockQuantity: qty,
		MinStockLevel: 5,
		ExpiryDate:    expiry,
	}
	require.NoError(t, db.Create(&inv).Error)
	return inv
}

func daysFrom(now time.Time, days float64) *time.Time {
	at := now.Add(time.Duration(days * float64(24*time.Hour)))
	return &at
}

func TestExpiryStatus(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry *time.Time
		status string
		days   *int
	}{
		{"no expiry", nil, ExpiryNone, nil},
		{"already expired", daysFrom(now, -1.5), ExpiryExpired, intPtr(-1)},
		{"expires now", daysFrom(now, 0), ExpiryExpired, intPtr(0)},
		{"two days", daysFrom(now, 2.5), ExpiryCritical, intPtr(2)},
		{"exactly three days", daysFrom(now, 3), ExpiryCritical, intPtr(3)},
		{"five days", daysFrom(now, 5), ExpiryWarning, intPtr(5)},
		{"a month", daysFrom(now, 30), ExpiryGood, intPtr(30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, days := ExpiryStatus(tt.expiry, now)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.days, days)
		})
	}
}

func intPtr(v int) *int { return &v }

func TestComputeAdjustedStock(t *testing.T) {
	tests := []struct {
		mode     string
		current  int
		quantity int
		want     int
		wantErr  bool
	}{
		{models.MovementAdd, 10, 5, 15, false},
		{models.MovementRemove, 10, 4, 6, false},
		{models.MovementRemove, 3, 10, 0, false},
		{models.MovementSet, 10, 2, 2, false},
		{models.MovementSet, 10, -1, 0, true},
		{"teleport", 10, 1, 0, true},
	}

	for _, tt := range tests {
		got, err := ComputeAdjustedStock(tt.mode, tt.current, tt.quantity)
		if tt.wantErr {
			assert.ErrorIs(t, err, apperr.ErrValidation, "%s %d", tt.mode, tt.quantity)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s %d on %d", tt.mode, tt.quantity, tt.current)
	}
}

func TestAdjustStockMovesGlobalCounter(t *testing.T) {
	db := newTestDB(t)
	svc := NewWarehouseService(db, NewStockLedger())
	admin := seedUser(t, db, "01799999999", models.RoleAdmin)
	ctx := context.Background()

	w := seedWarehouse(t, db, "Mirpur")
	flour := seedProduct(t, db, "Flour", "65", 8)
	seedInventory(t, db, w, flour, 8, nil)

	res, err := svc.AdjustStock(ctx, StockAdjustment{
		WarehouseID: w.ID, ProductID: flour.ID, Mode: models.MovementAdd, Quantity: 4, ActorID: admin.ID, Notes: "delivery",
	})
	require.NoError(t, err)
	assert.Equal(t, 8, res.PreviousStock)
	assert.Equal(t, 12, res.NewStock)
	assert.Equal(t, 12, res.ProductStock)
	require.NotNil(t, res.Movement.WarehouseID)
	assert.Equal(t, w.ID, *res.Movement.WarehouseID)
	assert.Equal(t, models.MovementAdd, res.Movement.MovementType)

	res, err = svc.AdjustStock(ctx, StockAdjustment{
		WarehouseID: w.ID, ProductID: flour.ID, Mode: models.MovementRemove, Quantity: 50, ActorID: admin.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.NewStock)
	assert.Equal(t, 0, res.ProductStock)
	assert.Equal(t, -12, res.Movement.Quantity)

	res, err = svc.AdjustStock(ctx, StockAdjustment{
		WarehouseID: w.ID, ProductID: flour.ID, Mode: models.MovementSet, Quantity: 7, ActorID: admin.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, res.NewStock)
	assert.Equal(t, 7, productStock(t, db, flour.ID))
	assert.Equal(t, int64(3), countRows(t, db, &models.StockMovement{}, "warehouse_id = ?", w.ID))
}

func TestAdjustStockSetReportsPreviousQuantity(t *testing.T) {
	db := newTestDB(t)
	svc := NewWarehouseService(db, NewStockLedger())
	ctx := context.Background()

	w := seedWarehouse(t, db, "Banani")
	sugar := seedProduct(t, db, "Sugar", "140", 5)
	seedInventory(t, db, w, sugar, 5, nil)

	res, err := svc.AdjustStock(ctx, StockAdjustment{WarehouseID: w.ID, ProductID: sugar.ID, Mode: models.MovementSet, Quantity: 20})
	require.NoError(t, err)
	assert.Equal(t, 5, res.PreviousStock)
	assert.Equal(t, 20, res.NewStock)
	assert.Equal(t, 20, res.ProductStock)
	assert.Equal(t, 15, res.Movement.Quantity)
	assert.Equal(t, 5, res.Movement.PreviousStock)
	assert.Equal(t, 20, productStock(t, db, sugar.ID))
}

func TestAdjustStockDrawsGlobalCounterDownToZero(t *testing.T) {
	db := newTestDB(t)
	svc := NewWarehouseService(db, NewStockLedger())
	ctx := context.Background()

	w := seedWarehouse(t, db, "Uttara")
	oil := seedProduct(t, db, "Mustard Oil", "280", 3)
	inv := seedInventory(t, db, w, oil, 10, nil)

	res, err := svc.AdjustStock(ctx, StockAdjustment{WarehouseID: w.ID, ProductID: oil.ID, Mode: models.MovementRemove, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, 10, res.PreviousStock)
	assert.Equal(t, 5, res.NewStock)
	assert.Equal(t, 0, res.ProductStock)
	assert.Equal(t, -3, res.Movement.Quantity)

	res, err = svc.AdjustStock(ctx, StockAdjustment{WarehouseID: w.ID, ProductID: oil.ID, Mode: models.MovementSet, Quantity: 0})
	require.NoError(t, err)
	assert.Equal(t, 0, res.NewStock)
	assert.Equal(t, 0, res.Movement.Quantity)

	var reloaded models.WarehouseInventory
	require.NoError(t, db.First(&reloaded, "id = ?", inv.ID).Error)
	assert.Equal(t, 0, reloaded.StockQuantity)
	assert.Equal(t, 0, productStock(t, db, oil.ID))

	_, err = svc.AdjustStock(ctx, StockAdjustment{WarehouseID: w.ID, ProductID: uuid.New(), Mode: models.MovementAdd, Quantity: 1})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.AdjustStock(ctx, StockAdjustment{WarehouseID: w.ID, ProductID: oil.ID, Mode: "borrow", Quantity: 1})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.AdjustStock(ctx, StockAdjustment{WarehouseID: w.ID, ProductID: oil.ID, Mode: models.MovementAdd, Quantity: -1})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestWarehouseListings(t *testing.T) {
	db := newTestDB(t)
	svc := NewWarehouseService(db, NewStockLedger())
	ctx := context.Background()
	now := time.Now().UTC()
	svc.now = func() time.Time { return now }

	gulshan := seedWarehouse(t, db, "Gulshan")
	closed := seedWarehouse(t, db, "Old Depot")
	require.NoError(t, db.Model(&closed).Update("is_active", false).Error)

	cheese := seedProduct(t, db, "Cheese", "500", 20)
	butter := seedProduct(t, db, "Butter", "300", 3)
	seedInventory(t, db, gulshan, cheese, 20, daysFrom(now, 2))
	seedInventory(t, db, gulshan, butter, 3, nil)

	summaries, err := svc.ListWarehouses(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, gulshan.ID, summaries[0].ID)
	assert.Equal(t, int64(2), summaries[0].ProductCount)
	assert.Equal(t, int64(23), summaries[0].TotalStock)

	inventory, err := svc.ListInventory(ctx, gulshan.ID)
	require.NoError(t, err)
	require.Len(t, inventory, 2)
	assert.Equal(t, cheese.ID, inventory[0].ProductID)
	assert.Equal(t, ExpiryCritical, inventory[0].ExpiryStatus)
	assert.Equal(t, ExpiryNone, inventory[1].ExpiryStatus)
	assert.Nil(t, inventory[1].DaysUntilExpiry)

	_, err = svc.ListInventory(ctx, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	low, err := svc.ListLowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, butter.ID, low[0].ProductID)
	require.NotNil(t, low[0].Warehouse)
	assert.Equal(t, "Gulshan", low[0].Warehouse.Name)
}

func TestRefreshExpiryAlerts(t *testing.T) {
	db := newTestDB(t)
	svc := NewWarehouseService(db, NewStockLedger())
	ctx := context.Background()
	now := time.Now().UTC()
	svc.now = func() time.Time { return now }

	w := seedWarehouse(t, db, "Banani")
	expiries := []*time.Time{
		daysFrom(now, -1),
		daysFrom(now, 2),
		daysFrom(now, 5),
		daysFrom(now, 10),
		daysFrom(now, 30),
		nil,
	}
	for i, expiry := range expiries {
		p := seedProduct(t, db, "Item"+string(rune('A'+i)), "10", 10)
		seedInventory(t, db, w, p, 10, expiry)
	}

	count, err := svc.RefreshExpiryAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	count, err = svc.RefreshExpiryAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Equal(t, int64(4), countRows(t, db, &models.ExpiryAlert{}, ""))

	alerts, err := svc.ListExpiryAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpiryAlertSummary{Total: 4, Critical: 2, Warning: 1, Info: 1}, alerts.Summary)

	require.NoError(t, svc.ResolveAlert(ctx, alerts.Critical[0].ID))
	alerts, err = svc.ListExpiryAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, alerts.Summary.Total)

	assert.ErrorIs(t, svc.ResolveAlert(ctx, uuid.New()), apperr.ErrNotFound)
}
