package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/freshcorner/internal/apperr"
	"github.com/example/freshcorner/internal/models"
	"github.com/example/freshcorner/internal/utils"
)

const (
	defaultSearchLimit = 12
	similarityCutoff   = 0.15
)

// Search sort keys.
const (
	SortRelevance = "relevance"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortName      = "name"
	SortNewest    = "newest"
)

// SearchParams filters the storefront product listing.
type SearchParams struct {
	Query      string
	CategoryID *uuid.UUID
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	InStock    bool
	Sort       string
	Page       int
	Limit      int
}

// SearchResult is one page of search hits.
type SearchResult struct {
	Products   []models.Product `json:"products"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
}

// PriceRange is the span of prices over available products.
type PriceRange struct {
	Min decimal.Decimal `json:"min_price"`
	Max decimal.Decimal `json:"max_price"`
}

// ProductInput carries product fields for admin create and update. Nil
// pointers leave the stored value unchanged on update.
type ProductInput struct {
	NameEn        *string          `json:"name_en"`
	NameBn        *string          `json:"name_bn"`
	DescriptionEn *string          `json:"description_en"`
	DescriptionBn *string          `json:"description_bn"`
	Price         *decimal.Decimal `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price"`
	StockQuantity *int             `json:"stock_quantity" validate:"omitempty,min=0"`
	Unit          *string          `json:"unit"`
	ImageURL      *string          `json:"image_url" validate:"omitempty,url"`
	CategoryID    *uuid.UUID       `json:"category_id"`
	IsAvailable   *bool            `json:"is_available"`
}

// CategoryInput carries category fields for admin create and update.
type CategoryInput struct {
	NameEn       string     `json:"name_en" validate:"required"`
	NameBn       string     `json:"name_bn" validate:"required"`
	Icon         string     `json:"icon"`
	ParentID     *uuid.UUID `json:"parent_id"`
	DisplayOrder int        `json:"display_order"`
	IsActive     *bool      `json:"is_active"`
}

// CatalogService serves product and category reads and admin edits.
type CatalogService struct {
	db     *gorm.DB
	ledger *StockLedger
	now    func() time.Time
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(db *gorm.DB, ledger *StockLedger) *CatalogService {
	return &CatalogService{db: db, ledger: ledger, now: time.Now}
}

// fuzzy reports whether trigram similarity is available.
func (s *CatalogService) fuzzy() bool {
	return s.db.Dialector.Name() == "postgres"
}

// Search returns available products matching p, one page at a time.
func (s *CatalogService) Search(ctx context.Context, p SearchParams) (*SearchResult, error) {
	pg := utils.NewPagination(p.Page, p.Limit, defaultSearchLimit)
	db := s.db.WithContext(ctx)

	query := db.Model(&models.Product{}).Where("products.is_available = ?", true)

	term := strings.TrimSpace(p.Query)
	if term != "" {
		like := "%" + strings.ToLower(term) + "%"
		if s.fuzzy() {
			query = query.Where(
				"(products.name_en ILIKE ? OR products.name_bn ILIKE ? OR similarity(products.name_en, ?) > ? OR similarity(products.name_bn, ?) > ?)",
				like, like, term, similarityCutoff, term, similarityCutoff,
			)
		} else {
			query = query.Where("(LOWER(products.name_en) LIKE ? OR LOWER(products.name_bn) LIKE ?)", like, like)
		}
	}

	if p.CategoryID != nil {
		children := db.Model(&models.Category{}).Select("id").Where("parent_id = ?", *p.CategoryID)
		query = query.Where("(products.category_id = ? OR products.category_id IN (?))", *p.CategoryID, children)
	}
	if p.MinPrice != nil {
		query = query.Where("products.price >= ?", *p.MinPrice)
	}
	if p.MaxPrice != nil {
		query = query.Where("products.price <= ?", *p.MaxPrice)
	}
	if p.InStock {
		query = query.Where("products.stock_quantity > ?", 0)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperr.Unexpected(err, "count products")
	}

	result := &SearchResult{
		Products:   []models.Product{},
		Total:      total,
		Page:       pg.Page,
		Limit:      pg.Limit,
		TotalPages: pg.TotalPages(total),
	}
	if total == 0 {
		return result, nil
	}

	if err := s.orderSearch(query, p.Sort, term).
		Preload("Category").
		Limit(pg.Limit).
		Offset(pg.Offset).
		Find(&result.Products).Error; err != nil {
		return nil, apperr.Unexpected(err, "search products")
	}

	return result, nil
}

// orderSearch always ends in products.id so pages never overlap.
func (s *CatalogService) orderSearch(query *gorm.DB, sort, term string) *gorm.DB {
	if sort == "" && term != "" {
		sort = SortRelevance
	}

	switch sort {
	case SortPriceAsc:
		return query.Order("products.price ASC, products.id ASC")
	case SortPriceDesc:
		return query.Order("products.price DESC, products.id ASC")
	case SortName:
		return query.Order("products.name_en ASC, products.id ASC")
	case SortNewest:
		return query.Order("products.created_at DESC, products.id ASC")
	case SortRelevance:
		if s.fuzzy() && term != "" {
			return query.Order(clause.OrderBy{Expression: clause.Expr{
				SQL:  "GREATEST(similarity(products.name_en, ?), similarity(products.name_bn, ?)) DESC, products.id ASC",
				Vars: []interface{}{term, term},
			}})
		}
	}

	return query.Order("products.category_id ASC, products.created_at ASC, products.id ASC")
}

// GetProduct returns one available product with its category.
func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).
		Preload("Category").
		Where("id = ? AND is_available = ?", id, true).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound.WithMessage("product not found")
		}
		return nil, apperr.Unexpected(err, "load product")
	}
	return &product, nil
}

// PriceRange returns min and max price over available products.
func (s *CatalogService) PriceRange(ctx context.Context) (*PriceRange, error) {
	var row struct {
		MinPrice decimal.NullDecimal
		MaxPrice decimal.NullDecimal
	}
	if err := s.db.WithContext(ctx).Model(&models.Product{}).
		Select("MIN(price) AS min_price, MAX(price) AS max_price").
		Where("is_available = ?", true).
		Scan(&row).Error; err != nil {
		return nil, apperr.Unexpected(err, "price range")
	}

	out := &PriceRange{Min: decimal.Zero, Max: decimal.NewFromInt(1000)}
	if row.MinPrice.Valid {
		out.Min = row.MinPrice.Decimal
	}
	if row.MaxPrice.Valid {
		out.Max = row.MaxPrice.Decimal
	}
	return out, nil
}

// ListCategories returns active top-level categories with their active
// subcategories. Counts cover available products, parents include children.
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	db := s.db.WithContext(ctx)

	var categories []models.Category
	if err := db.Where("is_active = ?", true).
		Order("display_order ASC, name_en ASC").
		Find(&categories).Error; err != nil {
		return nil, apperr.Unexpected(err, "list categories")
	}

	var counts []struct {
		CategoryID uuid.UUID
		Count      int64
	}
	if err := db.Model(&models.Product{}).
		Select("category_id, COUNT(*) AS count").
		Where("is_available = ? AND category_id IS NOT NULL", true).
		Group("category_id").
		Scan(&counts).Error; err != nil {
		return nil, apperr.Unexpected(err, "count category products")
	}

	byCategory := make(map[uuid.UUID]int64, len(counts))
	for _, c := range counts {
		byCategory[c.CategoryID] = c.Count
	}

	children := make(map[uuid.UUID][]models.Category)
	for _, c := range categories {
		if c.ParentID != nil {
			c.ProductCount = byCategory[c.ID]
			children[*c.ParentID] = append(children[*c.ParentID], c)
		}
	}

	roots := make([]models.Category, 0, len(categories))
	for _, c := range categories {
		if c.ParentID != nil {
			continue
		}
		c.ProductCount = byCategory[c.ID]
		c.Subcategories = children[c.ID]
		for _, child := range c.Subcategories {
			c.ProductCount += child.ProductCount
		}
		roots = append(roots, c)
	}

	return roots, nil
}

// AdminListProducts lists every product, newest first.
func (s *CatalogService) AdminListProducts(ctx context.Context, page, limit int) ([]models.Product, int64, error) {
	pg := utils.NewPagination(page, limit, 20)
	query := s.db.WithContext(ctx).Model(&models.Product{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Unexpected(err, "count products")
	}

	products := []models.Product{}
	if err := query.Preload("Category").
		Order("created_at DESC, id ASC").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&products).Error; err != nil {
		return nil, 0, apperr.Unexpected(err, "list products")
	}

	return products, total, nil
}

// CreateProduct inserts a product. Initial stock is recorded in the ledger.
func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput, actorID uuid.UUID) (*models.Product, error) {
	if in.NameEn == nil || in.NameBn == nil || in.Price == nil ||
		strings.TrimSpace(*in.NameEn) == "" || strings.TrimSpace(*in.NameBn) == "" {
		return nil, apperr.Validation("name_en, name_bn and price are required")
	}
	if !in.Price.IsPositive() {
		return nil, apperr.Validation("price must be greater than 0")
	}

	product := models.Product{
		Slug:        utils.Slugify(*in.NameEn, s.now()),
		Unit:        "kg",
		IsAvailable: true,
	}
	if err := s.applyProductInput(&product, in); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkCategory(tx, product.CategoryID); err != nil {
			return err
		}
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
		if in.StockQuantity != nil && *in.StockQuantity > 0 {
			if _, err := s.ledger.Apply(tx, Movement{
				ProductID: product.ID,
				Delta:     *in.StockQuantity,
				Type:      models.MovementAdd,
				ActorID:   &actorID,
				Notes:     "initial stock",
			}); err != nil {
				return err
			}
			product.StockQuantity = *in.StockQuantity
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Unexpected(err, "create product")
	}

	return &product, nil
}

// UpdateProduct applies a partial update. The slug never changes; a new
// stock quantity is written through the ledger as a set movement.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput, actorID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound.WithMessage("product not found")
			}
			return err
		}

		if in.NameEn != nil && strings.TrimSpace(*in.NameEn) == "" {
			return apperr.Validation("name_en cannot be empty")
		}
		if in.NameBn != nil && strings.TrimSpace(*in.NameBn) == "" {
			return apperr.Validation("name_bn cannot be empty")
		}
		if in.Price != nil && !in.Price.IsPositive() {
			return apperr.Validation("price must be greater than 0")
		}
		if err := s.applyProductInput(&product, in); err != nil {
			return err
		}
		if err := s.checkCategory(tx, product.CategoryID); err != nil {
			return err
		}

		if err := tx.Model(&product).Select(
			"name_en", "name_bn", "description_en", "description_bn", "price",
			"discount_price", "unit", "image_url", "category_id", "is_available",
		).Updates(&product).Error; err != nil {
			return err
		}

		if in.StockQuantity != nil && *in.StockQuantity != product.StockQuantity {
			mv, err := s.ledger.Apply(tx, Movement{
				ProductID: product.ID,
				Delta:     *in.StockQuantity - product.StockQuantity,
				Type:      models.MovementSet,
				ActorID:   &actorID,
				Notes:     "admin product update",
			})
			if err != nil {
				return err
			}
			product.StockQuantity = mv.NewStock
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Unexpected(err, "update product")
	}

	return &product, nil
}

// SoftDeleteProduct hides a product from the storefront.
func (s *CatalogService) SoftDeleteProduct(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("is_available", false)
	if res.Error != nil {
		return apperr.Unexpected(res.Error, "delete product")
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound.WithMessage("product not found")
	}
	return nil
}

// CreateCategory inserts a category; parent must be top-level.
func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if strings.TrimSpace(in.NameEn) == "" || strings.TrimSpace(in.NameBn) == "" {
		return nil, apperr.Validation("name_en and name_bn are required")
	}

	category := models.Category{
		NameEn:       strings.TrimSpace(in.NameEn),
		NameBn:       strings.TrimSpace(in.NameBn),
		Slug:         utils.Slugify(in.NameEn, s.now()),
		Icon:         in.Icon,
		ParentID:     in.ParentID,
		DisplayOrder: in.DisplayOrder,
		IsActive:     in.IsActive == nil || *in.IsActive,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkParent(tx, in.ParentID, uuid.Nil); err != nil {
			return err
		}
		return tx.Create(&category).Error
	})
	if err != nil {
		return nil, apperr.Unexpected(err, "create category")
	}
	return &category, nil
}

// UpdateCategory replaces a category's fields.
func (s *CatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*models.Category, error) {
	if strings.TrimSpace(in.NameEn) == "" || strings.TrimSpace(in.NameBn) == "" {
		return nil, apperr.Validation("name_en and name_bn are required")
	}

	var category models.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&category, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound.WithMessage("category not found")
			}
			return err
		}
		if err := checkParent(tx, in.ParentID, id); err != nil {
			return err
		}
		if in.ParentID != nil {
			var children int64
			if err := tx.Model(&models.Category{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
				return err
			}
			if children > 0 {
				return apperr.Validation("a category with subcategories cannot have a parent")
			}
		}

		category.NameEn = strings.TrimSpace(in.NameEn)
		category.NameBn = strings.TrimSpace(in.NameBn)
		category.Icon = in.Icon
		category.ParentID = in.ParentID
		category.DisplayOrder = in.DisplayOrder
		if in.IsActive != nil {
			category.IsActive = *in.IsActive
		}
		return tx.Save(&category).Error
	})
	if err != nil {
		return nil, apperr.Unexpected(err, "update category")
	}
	return &category, nil
}

// DeleteCategory deactivates a category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return apperr.Unexpected(res.Error, "delete category")
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound.WithMessage("category not found")
	}
	return nil
}

func (s *CatalogService) applyProductInput(p *models.Product, in ProductInput) error {
	if in.NameEn != nil {
		p.NameEn = strings.TrimSpace(*in.NameEn)
	}
	if in.NameBn != nil {
		p.NameBn = strings.TrimSpace(*in.NameBn)
	}
	if in.DescriptionEn != nil {
		p.DescriptionEn = *in.DescriptionEn
	}
	if in.DescriptionBn != nil {
		p.DescriptionBn = *in.DescriptionBn
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.DiscountPrice != nil {
		if in.DiscountPrice.IsNegative() {
			return apperr.Validation("discount price cannot be negative")
		}
		p.DiscountPrice = decimal.NullDecimal{Decimal: *in.DiscountPrice, Valid: !in.DiscountPrice.IsZero()}
	}
	if in.StockQuantity != nil && *in.StockQuantity < 0 {
		return apperr.Validation("stock quantity cannot be negative")
	}
	if in.Unit != nil && strings.TrimSpace(*in.Unit) != "" {
		p.Unit = strings.TrimSpace(*in.Unit)
	}
	if in.ImageURL != nil {
		p.ImageURL = *in.ImageURL
	}
	if in.CategoryID != nil {
		if *in.CategoryID == uuid.Nil {
			p.CategoryID = nil
		} else {
			id := *in.CategoryID
			p.CategoryID = &id
		}
	}
	if in.IsAvailable != nil {
		p.IsAvailable = *in.IsAvailable
	}
	return nil
}

func (s *CatalogService) checkCategory(tx *gorm.DB, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&models.Category{}).Where("id = ?", *id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.Validation("category does not exist")
	}
	return nil
}

// checkParent enforces a single level of nesting.
func checkParent(tx *gorm.DB, parentID *uuid.UUID, self uuid.UUID) error {
	if parentID == nil {
		return nil
	}
	if *parentID == self {
		return apperr.Validation("category cannot be its own parent")
	}

	var parent models.Category
	if err := tx.First(&parent, "id = ?", *parentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Validation("parent category does not exist")
		}
		return err
	}
	if parent.ParentID != nil {
		return apperr.Validation("categories can only be nested one level deep")
	}
	return nil
}
