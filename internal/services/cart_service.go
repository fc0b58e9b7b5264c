package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/freshcorner/internal/apperr"
	"github.com/example/freshcorner/internal/models"
)

// CartLine is a cart item joined with the product fields a shopper sees.
type CartLine struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	NameEn        string          `json:"name_en"`
	NameBn        string          `json:"name_bn"`
	Unit          string          `json:"unit"`
	ImageURL      string          `json:"image_url"`
	StockQuantity int             `json:"stock_quantity"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

// CartView is the computed read model of a cart.
type CartView struct {
	ID        uuid.UUID       `json:"id"`
	Items     []CartLine      `json:"items"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// CartService manages the per-user shopping cart.
type CartService struct {
	db *gorm.DB
}

// NewCartService constructs CartService.
func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

// GetOrCreate returns the user's cart, creating it on first use.
func (s *CartService) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := getOrCreateCart(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, apperr.Unexpected(err, "get cart")
	}
	return cart, nil
}

// View returns the cart with totals computed from the price snapshots.
func (s *CartService) View(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	db := s.db.WithContext(ctx)

	cart, err := getOrCreateCart(db, userID)
	if err != nil {
		return nil, apperr.Unexpected(err, "get cart")
	}

	var items []models.CartItem
	if err := db.Preload("Product").
		Where("cart_id = ?", cart.ID).
		Order("created_at ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, apperr.Unexpected(err, "load cart items")
	}

	view := &CartView{ID: cart.ID, Items: make([]CartLine, 0, len(items)), Subtotal: decimal.Zero}
	for _, item := range items {
		line := CartLine{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			LineTotal: item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
		if item.Product != nil {
			line.NameEn = item.Product.NameEn
			line.NameBn = item.Product.NameBn
			line.Unit = item.Product.Unit
			line.ImageURL = item.Product.ImageURL
			line.StockQuantity = item.Product.StockQuantity
		}
		view.Items = append(view.Items, line)
		view.ItemCount += item.Quantity
		view.Subtotal = view.Subtotal.Add(line.LineTotal)
	}

	return view, nil
}

// AddItem puts quantity of a product in the cart, merging with an existing
// line. The first price snapshot is kept on merge.
func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, apperr.ErrInvalidQuantity
	}

	var item models.CartItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Where("id = ? AND is_available = ?", productID, true).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrProductUnavailable
			}
			return err
		}

		cart, err := getOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		err = tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if quantity > product.StockQuantity {
				return insufficientStock(product)
			}
			item = models.CartItem{
				CartID:    cart.ID,
				ProductID: productID,
				Quantity:  quantity,
				Price:     product.Price,
			}
			return tx.Create(&item).Error
		case err != nil:
			return err
		}

		merged := item.Quantity + quantity
		if merged > product.StockQuantity {
			return insufficientStock(product)
		}
		item.Quantity = merged
		return tx.Model(&item).Update("quantity", merged).Error
	})
	if err != nil {
		return nil, apperr.Unexpected(err, "add cart item")
	}

	return &item, nil
}

// UpdateItem sets the quantity of a line in the user's own cart.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, apperr.ErrInvalidQuantity
	}

	var item models.CartItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findOwnedCartItem(tx, userID, itemID, &item); err != nil {
			return err
		}

		var product models.Product
		if err := tx.First(&product, "id = ?", item.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrProductUnavailable
			}
			return err
		}
		if quantity > product.StockQuantity {
			return insufficientStock(product)
		}

		item.Quantity = quantity
		return tx.Model(&item).Update("quantity", quantity).Error
	})
	if err != nil {
		return nil, apperr.Unexpected(err, "update cart item")
	}

	return &item, nil
}

// RemoveItem deletes a line from the user's own cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.CartItem
		if err := findOwnedCartItem(tx, userID, itemID, &item); err != nil {
			return err
		}
		return tx.Delete(&item).Error
	})
	return apperr.Unexpected(err, "remove cart item")
}

// Clear empties the user's cart. A user without a cart is left as is.
func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	db := s.db.WithContext(ctx)
	owned := db.Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)
	if err := db.Where("cart_id IN (?)", owned).Delete(&models.CartItem{}).Error; err != nil {
		return apperr.Unexpected(err, "clear cart")
	}
	return nil
}

func getOrCreateCart(tx *gorm.DB, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := tx.Where(models.Cart{UserID: userID}).FirstOrCreate(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func findOwnedCartItem(tx *gorm.DB, userID, itemID uuid.UUID, dest *models.CartItem) error {
	owned := tx.Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)
	err := tx.Where("id = ? AND cart_id IN (?)", itemID, owned).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound.WithMessage("cart item not found")
	}
	return err
}

func insufficientStock(p models.Product) error {
	return apperr.ErrInsufficientStock.WithMessage(
		fmt.Sprintf("%s: only %d in stock", p.NameEn, p.StockQuantity))
}
