package api

import (
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) Healthy(c *fiber.Ctx) error {
	if err := h.db.Ping(c.UserContext()); err != nil {
		h.logger.ErrorContext(c.UserContext(), "Database connection failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "unhealthy",
			"message": "Database connection failed",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "healthy",
		"message": "Service is healthy",
	})
}
