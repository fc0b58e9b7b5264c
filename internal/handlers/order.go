package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/freshcorner/internal/apperr"
	"github.com/example/freshcorner/internal/services"
	"github.com/example/freshcorner/internal/utils"
)

// OrderHandler manages order endpoints.
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PlaceOrder checks out the caller's cart.
func (h *OrderHandler) PlaceOrder(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req services.PlaceOrderInput
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	order, err := h.orders.Place(c.UserContext(), userID, req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Order placed successfully",
		"data":    order,
	})
}

// ListOrders returns orders for authenticated user.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	pg := utils.ParsePagination(c, 20)
	orders, total, err := h.orders.ListOwn(c.UserContext(), userID, pg.Page, pg.Limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pg.Meta(total),
	})
}

// GetOrder returns a single order for the authenticated user.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.GetDetail(c.UserContext(), userID, id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// AdminListOrders returns every order, optionally filtered by status.
func (h *OrderHandler) AdminListOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c, 20)

	orders, total, err := h.orders.AdminList(c.UserContext(), c.Query("status"), pg.Page, pg.Limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pg.Meta(total),
	})
}

// UpdateStatus moves an order through its lifecycle.
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	actorID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req updateStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	order, err := h.orders.Transition(c.UserContext(), id, req.Status, actorID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Order status updated",
		"data":    order,
	})
}
