package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/freshcorner/internal/services"
	"github.com/example/freshcorner/internal/utils"
)

// AdminHandler manages admin-only endpoints.
type AdminHandler struct {
	admin *services.AdminService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(admin *services.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	stats, err := h.admin.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": stats})
}

// ListUsers returns accounts with order totals.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c, 20)

	users, total, err := h.admin.ListUsers(c.UserContext(), pg.Page, pg.Limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       users,
		"pagination": pg.Meta(total),
	})
}

// ToggleUser activates or deactivates an account.
func (h *AdminHandler) ToggleUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	user, err := h.admin.ToggleUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": user})
}
