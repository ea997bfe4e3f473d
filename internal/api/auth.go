package api

import (
	"errors"

	"stabledesk/internal/account"

	"github.com/gofiber/fiber/v2"
)

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (h *Handler) Login(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	if h.loginLimiter != nil {
		if err := h.loginLimiter.Check(ctx, c.IP(), req.Email); err != nil {
			h.logger.WarnContext(ctx, "Login attempts exhausted", "ip", c.IP())
			return h.respondError(c, err)
		}
	}

	operator, err := h.authenticator.Login(ctx, account.LoginParam{Email: req.Email, Password: req.Password})
	h.metrics.RecordLoginAttempt(ctx, err == nil)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			h.logger.InfoContext(ctx, "Login rejected", "ip", c.IP())
		}
		return h.respondError(c, err)
	}

	if h.loginLimiter != nil {
		if err := h.loginLimiter.Reset(ctx, c.IP(), req.Email); err != nil {
			h.logger.WarnContext(ctx, "Failed to reset login attempts", "error", err)
		}
	}

	sess, err := h.sessions.Get(c)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to get session", "error", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to create session", nil)
	}
	if err := sess.Regenerate(); err != nil {
		h.logger.ErrorContext(ctx, "Failed to regenerate session", "error", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to create session", nil)
	}
	sess.Set(sessionOperatorKey, operator.ID.String())
	if err := sess.Save(); err != nil {
		h.logger.ErrorContext(ctx, "Failed to save session", "error", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to save session", nil)
	}

	h.logger.InfoContext(ctx, "Operator logged in", "operator_id", operator.ID, "ip", c.IP())
	return c.JSON(fiber.Map{
		"success":  true,
		"operator": operator,
	})
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()

	sess, err := h.sessions.Get(c)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to get session", "error", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to get session", nil)
	}
	if err := sess.Destroy(); err != nil {
		h.logger.ErrorContext(ctx, "Failed to destroy session", "error", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to end session", nil)
	}

	h.authenticator.Logout(ctx, operatorID(c))
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out",
	})
}

func (h *Handler) Session(c *fiber.Ctx) error {
	operator, err := h.authenticator.Operator(c.UserContext(), operatorID(c))
	if err != nil {
		return h.respondError(c, err)
	}
	if !operator.IsActive {
		return fail(c, fiber.StatusUnauthorized, "Authentication required", nil)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"operator": operator,
	})
}

type createOperatorRequest struct {
	Email    string `json:"email" label:"Email" validate:"required,email"`
	Name     string `json:"name" label:"Name" validate:"notblank"`
	Password string `json:"password" label:"Password" validate:"required"`
}

func (h *Handler) ListOperators(c *fiber.Ctx) error {
	operators, err := h.authenticator.ListOperators(c.UserContext())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"operators": operators})
}

func (h *Handler) CreateOperator(c *fiber.Ctx) error {
	var req createOperatorRequest
	if err := h.parse(c, &req); err != nil {
		return h.respondError(c, err)
	}

	operator, err := h.authenticator.CreateOperator(c.UserContext(), account.CreateOperatorParam{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"operator": operator})
}
