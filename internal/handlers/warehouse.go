package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/freshcorner/internal/services"
)

// WarehouseHandler exposes inventory views and admin adjustments.
type WarehouseHandler struct {
	warehouses *services.WarehouseService
}

// NewWarehouseHandler constructs WarehouseHandler.
func NewWarehouseHandler(warehouses *services.WarehouseService) *WarehouseHandler {
	return &WarehouseHandler{warehouses: warehouses}
}

type adjustStockRequest struct {
	Quantity       *int   `json:"quantity" validate:"required,min=0"`
	AdjustmentType string `json:"adjustment_type" validate:"required,oneof=add remove set"`
	Notes          string `json:"notes"`
}

// ListWarehouses returns active warehouses with stock totals.
func (h *WarehouseHandler) ListWarehouses(c *fiber.Ctx) error {
	warehouses, err := h.warehouses.ListWarehouses(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": warehouses})
}

// ListInventory returns one warehouse's stock with expiry status.
func (h *WarehouseHandler) ListInventory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	inventory, err := h.warehouses.ListInventory(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": inventory})
}

// ExpiryAlerts returns unresolved alerts grouped by tier.
func (h *WarehouseHandler) ExpiryAlerts(c *fiber.Ctx) error {
	alerts, err := h.warehouses.ListExpiryAlerts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": alerts})
}

// LowStock returns rows at or below their minimum level.
func (h *WarehouseHandler) LowStock(c *fiber.Ctx) error {
	rows, err := h.warehouses.ListLowStock(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": rows})
}

// AdjustStock changes a warehouse row and the product's global stock.
func (h *WarehouseHandler) AdjustStock(c *fiber.Ctx) error {
	actorID, err := currentUser(c)
	if err != nil {
		return err
	}
	warehouseID, err := paramID(c, "warehouseId")
	if err != nil {
		return err
	}
	productID, err := paramID(c, "productId")
	if err != nil {
		return err
	}

	var req adjustStockRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.warehouses.AdjustStock(c.UserContext(), services.StockAdjustment{
		WarehouseID: warehouseID,
		ProductID:   productID,
		Mode:        req.AdjustmentType,
		Quantity:    *req.Quantity,
		ActorID:     actorID,
		Notes:       req.Notes,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Stock adjusted successfully",
		"data":    result,
	})
}

// RefreshAlerts rebuilds expiry alerts from current inventory.
func (h *WarehouseHandler) RefreshAlerts(c *fiber.Ctx) error {
	count, err := h.warehouses.RefreshExpiryAlerts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"alerted": count}})
}

// ResolveAlert marks an alert handled.
func (h *WarehouseHandler) ResolveAlert(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.warehouses.ResolveAlert(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Alert resolved"})
}
