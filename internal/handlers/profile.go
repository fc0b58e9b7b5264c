package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/freshcorner/internal/services"
)

// ProfileHandler serves the caller's account and addresses.
type ProfileHandler struct {
	profiles  *services.ProfileService
	addresses *services.AddressService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(profiles *services.ProfileService, addresses *services.AddressService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, addresses: addresses}
}

type updateProfileRequest struct {
	FullName string  `json:"full_name" validate:"required"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

// GetProfile returns the caller's profile.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	profile, err := h.profiles.GetProfile(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": profile})
}

// UpdateProfile edits name and email.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	profile, err := h.profiles.UpdateProfile(c.UserContext(), userID, req.FullName, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Profile updated", "data": profile})
}

// ListAddresses returns the caller's addresses, default first.
func (h *ProfileHandler) ListAddresses(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	addresses, err := h.addresses.ListAddresses(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": addresses})
}

// CreateAddress adds an address.
func (h *ProfileHandler) CreateAddress(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req services.AddressInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	address, err := h.addresses.CreateAddress(c.UserContext(), userID, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": address})
}

// UpdateAddress edits an owned address.
func (h *ProfileHandler) UpdateAddress(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req services.AddressInput
	if err := parseBody(c, &req); err != nil {
		return err
	}

	address, err := h.addresses.UpdateAddress(c.UserContext(), userID, id, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": address})
}

// DeleteAddress removes an owned address.
func (h *ProfileHandler) DeleteAddress(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.addresses.DeleteAddress(c.UserContext(), userID, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Address deleted"})
}

// SetDefaultAddress makes an owned address the default.
func (h *ProfileHandler) SetDefaultAddress(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	address, err := h.addresses.SetDefaultAddress(c.UserContext(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": address})
}
