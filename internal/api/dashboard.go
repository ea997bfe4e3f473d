package api

import (
	"stabledesk/internal/validator"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.dashboard.Stats(c.UserContext())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"stats": stats})
}

func (h *Handler) UsersWithOrganizations(c *fiber.Ctx) error {
	users, err := h.dashboard.UsersWithOrganizations(c.UserContext())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

// SchemaOptions serves the enumerations behind the validation rules so forms
// can offer the same choices.
func (h *Handler) SchemaOptions(c *fiber.Ctx) error {
	return c.JSON(validator.SchemaOptions())
}
