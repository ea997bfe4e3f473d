package api

import (
	"errors"

	"stabledesk/internal/account"
	"stabledesk/internal/business"
	"stabledesk/internal/database"
	"stabledesk/internal/organisation"
	"stabledesk/internal/provisioning"
	"stabledesk/internal/ratelimit"
	"stabledesk/internal/validator"

	"github.com/gofiber/fiber/v2"
)

var notFoundMessages = []struct {
	err     error
	message string
}{
	{database.ErrOperatorNotFound, "Operator not found"},
	{database.ErrAccountNotFound, "User not found"},
	{database.ErrOrganizationNotFound, "Organization not found"},
	{database.ErrRoleNotFound, "Role not found"},
	{database.ErrMemberNotFound, "Organization member not found"},
	{database.ErrProfileNotFound, "Profile not found"},
	{database.ErrHorseNotFound, "Horse not found"},
	{database.ErrProvisioningRunNotFound, "Provisioning run not found"},
}

func success(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func fail(c *fiber.Ctx, status int, message string, errs []string) error {
	body := fiber.Map{
		"success": false,
		"message": message,
	}
	if len(errs) > 0 {
		body["errors"] = errs
	}
	return c.Status(status).JSON(body)
}

// respondError maps a manager error to its status and the failure envelope.
func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	var (
		requestErr *business.RequestError
		insertErr  *business.InsertError
		fieldErrs  validator.Errors
		fiberErr   *fiber.Error
	)

	switch {
	case errors.As(err, &requestErr):
		return fail(c, fiber.StatusBadRequest, requestErr.Message, requestErr.Errors)
	case errors.As(err, &insertErr):
		h.logger.ErrorContext(c.UserContext(), "Insert failed", "path", c.Path(), "error", err)
		return fail(c, fiber.StatusInternalServerError, insertErr.Message, []string{insertErr.Err.Error()})
	case errors.As(err, &fieldErrs):
		return fail(c, fiber.StatusBadRequest, "Validation errors found", fieldErrs)
	case errors.As(err, &fiberErr):
		return fail(c, fiberErr.Code, fiberErr.Message, nil)
	case errors.Is(err, account.ErrInvalidCredentials):
		return fail(c, fiber.StatusUnauthorized, "Invalid email or password", nil)
	case errors.Is(err, ratelimit.ErrTooManyAttempts):
		return fail(c, fiber.StatusTooManyRequests, "Too many login attempts, please try again later", nil)
	case errors.Is(err, account.ErrEmailAlreadyInUse):
		return fail(c, fiber.StatusConflict, "Email address is already in use", nil)
	case errors.Is(err, account.ErrWeakPassword):
		return fail(c, fiber.StatusBadRequest, "Password does not meet the password policy", []string{err.Error()})
	case errors.Is(err, organisation.ErrRoleNotInOrganization):
		return fail(c, fiber.StatusBadRequest, "Role does not belong to the organization", nil)
	case errors.Is(err, database.ErrInvalidReference), errors.Is(err, database.ErrConstraintViolated):
		return fail(c, fiber.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, database.ErrNotFound):
		for _, nf := range notFoundMessages {
			if errors.Is(err, nf.err) {
				return fail(c, fiber.StatusNotFound, nf.message, nil)
			}
		}
		return fail(c, fiber.StatusNotFound, "Not found", nil)
	case errors.Is(err, database.ErrConflict):
		return fail(c, fiber.StatusConflict, "A record with these values already exists", nil)
	case errors.Is(err, provisioning.ErrAdminRoleNotFound):
		h.logger.ErrorContext(c.UserContext(), "Provisioning found no admin role", "error", err)
		return fail(c, fiber.StatusInternalServerError, "Admin role not found", nil)
	default:
		h.logger.ErrorContext(c.UserContext(), "Request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return fail(c, fiber.StatusInternalServerError, err.Error(), nil)
	}
}

// ErrorHandler renders errors that escape a handler, such as unknown routes
// and oversized bodies, in the failure envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fail(c, fiberErr.Code, fiberErr.Message, nil)
	}
	return fail(c, fiber.StatusInternalServerError, err.Error(), nil)
}

func badRequest(c *fiber.Ctx, message string, errs ...string) error {
	return fail(c, fiber.StatusBadRequest, message, errs)
}
