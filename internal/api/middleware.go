package api

import (
	"context"
	"log/slog"
	"time"

	"stabledesk/internal/audit"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	sessionOperatorKey           = "operator_id"
	sessionSelectionUserKey      = "selection_user_id"
	sessionSelectionOrganization = "selection_organization_id"

	localsOperatorID = "operator_id"
)

func RequestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		logger.InfoContext(c.UserContext(), "Request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"latency", time.Since(start),
			"ip", c.IP(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		)
		return err
	}
}

// RequestTimeout bounds the context handed to managers. Zero disables it.
func RequestTimeout(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if timeout <= 0 {
			return c.Next()
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// RequireOperator rejects requests without an operator session and puts the
// operator id on the request context for auditing.
func (h *Handler) RequireOperator(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		h.logger.ErrorContext(c.UserContext(), "Failed to get session", "error", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to load session", nil)
	}

	raw, ok := sess.Get(sessionOperatorKey).(string)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Authentication required", nil)
	}
	operatorID, err := uuid.Parse(raw)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Authentication required", nil)
	}

	c.Locals(localsOperatorID, operatorID)
	c.SetUserContext(audit.WithOperator(c.UserContext(), operatorID))
	return c.Next()
}

func operatorID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(localsOperatorID).(uuid.UUID)
	return id
}
