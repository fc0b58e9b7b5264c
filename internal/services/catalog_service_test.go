package services

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/example/freshcorner/internal/apperr"
	"github.com/example/freshcorner/internal/models"
)

func seedCategory(t *testing.T, db *gorm.DB, name string, parent *uuid.UUID) models.Category {
	t.Helper()
	category := models.Category{
		NameEn:   name,
		NameBn:   name + " bn",
		Slug:     name + "-" + uuid.NewString(),
		ParentID: parent,
		IsActive: true,
	}
	require.NoError(t, db.Create(&category).Error)
	return category
}

func setCategory(t *testing.T, db *gorm.DB, p models.Product, c models.Category) {
	t.Helper()
	require.NoError(t, db.Model(&p).Update("category_id", c.ID).Error)
}

func productNames(products []models.Product) []string {
	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.NameEn)
	}
	return names
}

func TestSearchFilters(t *testing.T) {
	db := newTestDB(t)
	svc := NewCatalogService(db, NewStockLedger())
	ctx := context.Background()

	fruits := seedCategory(t, db, "Fruits", nil)
	citrus := seedCategory(t, db, "Citrus", &fruits.ID)
	dairy := seedCategory(t, db, "Dairy", nil)

	apple := seedProduct(t, db, "Red Apple", "120", 10)
	orange := seedProduct(t, db, "Orange", "90", 0)
	yogurt := seedProduct(t, db, "Sweet Yogurt", "60", 4)
	pineapple := seedProduct(t, db, "Pineapple", "150", 2)
	require.NoError(t, db.Model(&pineapple).Update("is_available", false).Error)

	setCategory(t, db, apple, fruits)
	setCategory(t, db, orange, citrus)
	setCategory(t, db, yogurt, dairy)
	setCategory(t, db, pineapple, fruits)

	res, err := svc.Search(ctx, SearchParams{Query: "APPLE"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Red Apple"}, productNames(res.Products))

	res, err = svc.Search(ctx, SearchParams{CategoryID: &fruits.ID, Sort: SortName})
	require.NoError(t, err)
	assert.Equal(t, []string{"Orange", "Red Apple"}, productNames(res.Products))

	res, err = svc.Search(ctx, SearchParams{CategoryID: &fruits.ID, InStock: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Red Apple"}, productNames(res.Products))

	minPrice, maxPrice := decimal.NewFromInt(60), decimal.NewFromInt(100)
	res, err = svc.Search(ctx, SearchParams{MinPrice: &minPrice, MaxPrice: &maxPrice, Sort: SortPriceDesc})
	require.NoError(t, err)
	assert.Equal(t, []string{"Orange", "Sweet Yogurt"}, productNames(res.Products))

	res, err = svc.Search(ctx, SearchParams{Query: "durian"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Total)
	assert.NotNil(t, res.Products)
	assert.Equal(t, 0, res.TotalPages)
}

func TestSearchPagesDoNotOverlap(t *testing.T) {
	db := newTestDB(t)
	svc := NewCatalogService(db, NewStockLedger())
	ctx := context.Background()

	for _, name := range []string{"Carrot", "Beetroot", "Radish", "Spinach", "Cabbage"} {
		seedProduct(t, db, name, "40", 5)
	}

	seen := map[uuid.UUID]bool{}
	for page := 1; page <= 3; page++ {
		res, err := svc.Search(ctx, SearchParams{Page: page, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), res.Total)
		assert.Equal(t, 3, res.TotalPages)
		for _, p := range res.Products {
			assert.False(t, seen[p.ID], "product %s repeated", p.NameEn)
			seen[p.ID] = true
		}
	}
	assert.Len(t, seen, 5)

	again, err := svc.Search(ctx, SearchParams{Page: 1, Limit: 2})
	require.NoError(t, err)
	first, err := svc.Search(ctx, SearchParams{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, productNames(first.Products), productNames(again.Products))
}

func TestSearchUsesTrigramSimilarityOnPostgres(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE .*ILIKE.*similarity\(products\.name_en`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	res, err := NewCatalogService(db, NewStockLedger()).Search(context.Background(), SearchParams{Query: "aple"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Total)
	assert.Empty(t, res.Products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceRange(t *testing.T) {
	db := newTestDB(t)
	svc := NewCatalogService(db, NewStockLedger())
	ctx := context.Background()

	empty, err := svc.PriceRange(ctx)
	require.NoError(t, err)
	assertDecimal(t, "0", empty.Min)
	assertDecimal(t, "1000", empty.Max)

	seedProduct(t, db, "Lemon", "15.50", 5)
	seedProduct(t, db, "Beef", "780", 5)
	hidden := seedProduct(t, db, "Caviar", "9000", 1)
	require.NoError(t, db.Model(&hidden).Update("is_available", false).Error)

	r, err := svc.PriceRange(ctx)
	require.NoError(t, err)
	assertDecimal(t, "15.5", r.Min)
	assertDecimal(t, "780", r.Max)
}

func TestListCategoriesCountsChildren(t *testing.T) {
	db := newTestDB(t)
	svc := NewCatalogService(db, NewStockLedger())

	veg := seedCategory(t, db, "Vegetables", nil)
	leafy := seedCategory(t, db, "Leafy", &veg.ID)
	setCategory(t, db, seedProduct(t, db, "Tomato", "80", 5), veg)
	setCategory(t, db, seedProduct(t, db, "Lettuce", "50", 5), leafy)
	setCategory(t, db, seedProduct(t, db, "Kale", "70", 5), leafy)

	roots, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, int64(3), roots[0].ProductCount)
	require.Len(t, roots[0].Subcategories, 1)
	assert.Equal(t, int64(2), roots[0].Subcategories[0].ProductCount)
}

func TestProductStockChangesGoThroughLedger(t *testing.T) {
	db := newTestDB(t)
	svc := NewCatalogService(db, NewStockLedger())
	admin := seedUser(t, db, "01799999999", models.RoleAdmin)
	ctx := context.Background()

	name, nameBn := "Fresh Okra", "ঢেঁড়স"
	price := decimal.RequireFromString("65")
	stock := 12

	product, err := svc.CreateProduct(ctx, ProductInput{NameEn: &name, NameBn: &nameBn, Price: &price, StockQuantity: &stock}, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "kg", product.Unit)
	assert.True(t, product.IsAvailable)
	assert.Contains(t, product.Slug, "fresh-okra-")
	assert.Equal(t, 12, productStock(t, db, product.ID))

	newStock := 5
	newPrice := decimal.RequireFromString("70")
	updated, err := svc.UpdateProduct(ctx, product.ID, ProductInput{Price: &newPrice, StockQuantity: &newStock}, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, updated.StockQuantity)
	assert.Equal(t, product.Slug, updated.Slug)
	assertDecimal(t, "70", updated.Price)

	var movements []models.StockMovement
	require.NoError(t, db.Where("product_id = ?", product.ID).Order("created_at ASC").Find(&movements).Error)
	require.Len(t, movements, 2)
	assert.Equal(t, models.MovementAdd, movements[0].MovementType)
	assert.Equal(t, 12, movements[0].Quantity)
	assert.Equal(t, models.MovementSet, movements[1].MovementType)
	assert.Equal(t, -7, movements[1].Quantity)
	assert.Equal(t, 5, movements[1].NewStock)

	zero := decimal.Zero
	_, err = svc.UpdateProduct(ctx, product.ID, ProductInput{Price: &zero}, admin.ID)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, svc.SoftDeleteProduct(ctx, product.ID))
	_, err = svc.GetProduct(ctx, product.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCategoryNestingIsOneLevel(t *testing.T) {
	db := newTestDB(t)
	svc := NewCatalogService(db, NewStockLedger())
	ctx := context.Background()

	root, err := svc.CreateCategory(ctx, CategoryInput{NameEn: "Bakery", NameBn: "বেকারি"})
	require.NoError(t, err)
	assert.True(t, root.IsActive)

	child, err := svc.CreateCategory(ctx, CategoryInput{NameEn: "Cakes", NameBn: "কেক", ParentID: &root.ID})
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, CategoryInput{NameEn: "Cupcakes", NameBn: "কাপকেক", ParentID: &child.ID})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.UpdateCategory(ctx, root.ID, CategoryInput{NameEn: "Bakery", NameBn: "বেকারি", ParentID: &root.ID})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, svc.DeleteCategory(ctx, child.ID))
	roots, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Empty(t, roots[0].Subcategories)
}
