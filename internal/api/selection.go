package api

import (
	"stabledesk/internal/business"
	"stabledesk/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Selection is the user and organization an operator is currently setting up.
type Selection struct {
	UserID         uuid.UUID `json:"user_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
}

type selectionRequest struct {
	UserID         string `json:"user_id" label:"User ID" validate:"required,uuid"`
	OrganizationID string `json:"organization_id" label:"Organization ID" validate:"required,uuid"`
}

func (h *Handler) PutSelection(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req selectionRequest
	if err := h.parse(c, &req); err != nil {
		return h.respondError(c, err)
	}
	selection := Selection{
		UserID:         uuid.MustParse(req.UserID),
		OrganizationID: uuid.MustParse(req.OrganizationID),
	}

	if _, err := h.organisations.VerifyMembership(ctx, selection.UserID, selection.OrganizationID); err != nil {
		return h.respondError(c, err)
	}

	sess, err := h.sessions.Get(c)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to get session", "error", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to get session", nil)
	}
	sess.Set(sessionSelectionUserKey, selection.UserID.String())
	sess.Set(sessionSelectionOrganization, selection.OrganizationID.String())
	if err := sess.Save(); err != nil {
		h.logger.ErrorContext(ctx, "Failed to save session", "error", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to save session", nil)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"selection": selection,
	})
}

func (h *Handler) GetSelection(c *fiber.Ctx) error {
	selection, ok := h.selection(c)
	if !ok {
		return c.JSON(fiber.Map{"selection": nil})
	}
	return c.JSON(fiber.Map{"selection": selection})
}

func (h *Handler) selection(c *fiber.Ctx) (Selection, bool) {
	sess, err := h.sessions.Get(c)
	if err != nil {
		h.logger.WarnContext(c.UserContext(), "Failed to get session", "error", err)
		return Selection{}, false
	}

	userID, err := uuid.Parse(stringValue(sess.Get(sessionSelectionUserKey)))
	if err != nil {
		return Selection{}, false
	}
	orgID, err := uuid.Parse(stringValue(sess.Get(sessionSelectionOrganization)))
	if err != nil {
		return Selection{}, false
	}
	return Selection{UserID: userID, OrganizationID: orgID}, true
}

// ownerOrSelection falls back to the stored selection when a write names
// neither a user nor an organization.
func (h *Handler) ownerOrSelection(c *fiber.Ctx, owner business.Owner) business.Owner {
	if !owner.IsZero() {
		return owner
	}
	selection, ok := h.selection(c)
	if !ok {
		return owner
	}
	return business.Owner{
		UserID:         util.Some(selection.UserID),
		OrganizationID: util.Some(selection.OrganizationID),
	}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
