package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/freshcorner/internal/apperr"
	"github.com/example/freshcorner/internal/services"
	"github.com/example/freshcorner/internal/utils"
)

// ProductHandler exposes product endpoints.
type ProductHandler struct {
	catalog *services.CatalogService
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(catalog *services.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// Search lists available products with filters, sorting and pagination.
func (h *ProductHandler) Search(c *fiber.Ctx) error {
	params := services.SearchParams{
		Query:   c.Query("q"),
		Sort:    c.Query("sort"),
		InStock: c.QueryBool("in_stock", false),
		Page:    c.QueryInt("page", 1),
		Limit:   c.QueryInt("limit", 12),
	}

	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperr.Validation("invalid category_id")
		}
		params.CategoryID = &id
	}

	var err error
	if params.MinPrice, err = queryDecimal(c, "min_price"); err != nil {
		return err
	}
	if params.MaxPrice, err = queryDecimal(c, "max_price"); err != nil {
		return err
	}

	result, err := h.catalog.Search(c.UserContext(), params)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    result.Products,
		"pagination": fiber.Map{
			"current_page":   result.Page,
			"items_per_page": result.Limit,
			"total_items":    result.Total,
			"total_pages":    result.TotalPages,
		},
	})
}

// PriceRange returns the min and max price of available products.
func (h *ProductHandler) PriceRange(c *fiber.Ctx) error {
	pr, err := h.catalog.PriceRange(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": pr})
}

// ListCategories returns the category tree with product counts.
func (h *ProductHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.catalog.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": categories})
}

// GetProduct returns a single product.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	product, err := h.catalog.GetProduct(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

// AdminListProducts lists all products including unavailable ones.
func (h *ProductHandler) AdminListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c, 20)

	products, total, err := h.catalog.AdminListProducts(c.UserContext(), pg.Page, pg.Limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       products,
		"pagination": pg.Meta(total),
	})
}

// CreateProduct adds a product.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req services.ProductInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	product, err := h.catalog.CreateProduct(c.UserContext(), req, userID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": product})
}

// UpdateProduct applies a partial update.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req services.ProductInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	product, err := h.catalog.UpdateProduct(c.UserContext(), id, req, userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": product})
}

// DeleteProduct hides a product from the storefront.
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.catalog.SoftDeleteProduct(c.UserContext(), id); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "Product deleted"})
}

// RegisterProductRoutes wires the public product endpoints.
func (h *ProductHandler) RegisterProductRoutes(router fiber.Router) {
	router.Get("/search", h.Search)
	router.Get("/price-range", h.PriceRange)
	router.Get("/categories", h.ListCategories)
	router.Get("/:id", h.GetProduct)
}

func queryDecimal(c *fiber.Ctx, key string) (*decimal.Decimal, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, apperr.Validation("invalid " + key)
	}
	return &d, nil
}
