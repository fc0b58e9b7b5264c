package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/freshcorner/internal/apperr"
	"github.com/example/freshcorner/internal/services"
)

// CartHandler exposes the shopper's cart.
type CartHandler struct {
	cart *services.CartService
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(cart *services.CartService) *CartHandler {
	return &CartHandler{cart: cart}
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  *int   `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart returns the cart with computed totals.
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	view, err := h.cart.View(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": view})
}

// AddItem puts a product in the cart.
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req addCartItemRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return apperr.Validation("invalid product_id")
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	item, err := h.cart.AddItem(c.UserContext(), userID, productID, quantity)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Item added to cart",
		"data":    item,
	})
}

// UpdateItem sets a line's quantity.
func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	itemID, err := paramID(c, "itemId")
	if err != nil {
		return err
	}

	var req updateCartItemRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	item, err := h.cart.UpdateItem(c.UserContext(), userID, itemID, req.Quantity)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": item})
}

// RemoveItem deletes a line.
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	itemID, err := paramID(c, "itemId")
	if err != nil {
		return err
	}

	if err := h.cart.RemoveItem(c.UserContext(), userID, itemID); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "Item removed"})
}

// Clear empties the cart.
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	if err := h.cart.Clear(c.UserContext(), userID); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "Cart cleared"})
}
