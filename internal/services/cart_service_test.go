package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/freshcorner/internal/apperr"
	"github.com/example/freshcorner/internal/models"
)

func TestAddItemMergesAndKeepsPriceSnapshot(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)
	user := seedUser(t, db, "01711111111", models.RoleCustomer)
	mango := seedProduct(t, db, "Mango", "10", 20)
	ctx := context.Background()

	first, err := svc.AddItem(ctx, user.ID, mango.ID, 2)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", mango.ID).Update("price", "12").Error)

	merged, err := svc.AddItem(ctx, user.ID, mango.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, 3, merged.Quantity)
	assertDecimal(t, "10", merged.Price)

	view, err := svc.View(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.ItemCount)
	assertDecimal(t, "30", view.Subtotal)
	assert.Equal(t, "Mango", view.Items[0].NameEn)
}

func TestAddItemValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)
	user := seedUser(t, db, "01711111111", models.RoleCustomer)
	ctx := context.Background()

	banana := seedProduct(t, db, "Banana", "5", 3)
	hidden := seedProduct(t, db, "Durian", "900", 3)
	require.NoError(t, db.Model(&hidden).Update("is_available", false).Error)

	_, err := svc.AddItem(ctx, user.ID, banana.ID, 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidQuantity)

	_, err = svc.AddItem(ctx, user.ID, hidden.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrProductUnavailable)

	_, err = svc.AddItem(ctx, user.ID, uuid.New(), 1)
	assert.ErrorIs(t, err, apperr.ErrProductUnavailable)

	_, err = svc.AddItem(ctx, user.ID, banana.ID, 4)
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)

	_, err = svc.AddItem(ctx, user.ID, banana.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, user.ID, banana.ID, 2)
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
}

func TestCartItemsAreOwnerScoped(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)
	owner := seedUser(t, db, "01711111111", models.RoleCustomer)
	intruder := seedUser(t, db, "01722222222", models.RoleCustomer)
	ctx := context.Background()

	garlic := seedProduct(t, db, "Garlic", "180", 10)
	item, err := svc.AddItem(ctx, owner.ID, garlic.ID, 1)
	require.NoError(t, err)

	_, err = svc.UpdateItem(ctx, intruder.ID, item.ID, 2)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, svc.RemoveItem(ctx, intruder.ID, item.ID), apperr.ErrNotFound)

	updated, err := svc.UpdateItem(ctx, owner.ID, item.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Quantity)

	_, err = svc.UpdateItem(ctx, owner.ID, item.ID, 11)
	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	_, err = svc.UpdateItem(ctx, owner.ID, item.ID, 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidQuantity)

	require.NoError(t, svc.RemoveItem(ctx, owner.ID, item.ID))
	assert.Equal(t, int64(0), countRows(t, db, &models.CartItem{}, ""))
}

func TestClearCart(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)
	user := seedUser(t, db, "01711111111", models.RoleCustomer)
	other := seedUser(t, db, "01722222222", models.RoleCustomer)
	ctx := context.Background()

	ginger := seedProduct(t, db, "Ginger", "220", 10)
	chili := seedProduct(t, db, "Chili", "80", 10)
	for _, id := range []uuid.UUID{ginger.ID, chili.ID} {
		_, err := svc.AddItem(ctx, user.ID, id, 1)
		require.NoError(t, err)
	}
	_, err := svc.AddItem(ctx, other.ID, ginger.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, user.ID))

	view, err := svc.View(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assertDecimal(t, "0", view.Subtotal)

	otherView, err := svc.View(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, otherView.Items, 1)

	// A user without a cart clears without error.
	assert.NoError(t, svc.Clear(ctx, uuid.New()))
}
