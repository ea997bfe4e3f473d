package api

import (
	"stabledesk/internal/account"
	"stabledesk/internal/audit"
	"stabledesk/internal/organisation"
	"stabledesk/internal/provisioning"
	"stabledesk/internal/util"
	"stabledesk/internal/validator"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListOrganizations(c *fiber.Ctx) error {
	orgType := c.Query("type")
	if orgType != "" && !validator.InEnum(validator.EnumOrganizationType, orgType) {
		return badRequest(c, "Validation errors found", "Type must be one of: stable, organization, trainer, enterprise")
	}

	orgs, err := h.organisations.ListOrganizations(c.UserContext(), organisation.ListOrganizationsParam{
		ActiveOnly: c.QueryBool("active_only", false),
		Type:       orgType,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"organizations": orgs})
}

func (h *Handler) CreateOrganization(c *fiber.Ctx) error {
	var input organisation.CreateOrganizationInput
	if err := decode(c, &input); err != nil {
		return h.respondError(c, err)
	}

	org, err := h.organisations.CreateOrganization(c.UserContext(), input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"organization": org})
}

func (h *Handler) GetOrganization(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}

	org, err := h.organisations.GetOrganization(c.UserContext(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"organization": org})
}

func (h *Handler) UpdateOrganization(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}

	var input organisation.UpdateOrganizationInput
	if err := decode(c, &input); err != nil {
		return h.respondError(c, err)
	}

	org, err := h.organisations.UpdateOrganization(c.UserContext(), id, input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"organization": org})
}

// ProvisionOrganization runs the full organization setup in one request.
func (h *Handler) ProvisionOrganization(c *fiber.Ctx) error {
	var input provisioning.Input
	if err := decode(c, &input); err != nil {
		return h.respondError(c, err)
	}

	result, err := h.provisioner.Provision(c.UserContext(), input)
	if err != nil {
		return h.respondError(c, err)
	}
	return success(c, fiber.StatusCreated, "Organization provisioned", result)
}

func (h *Handler) ListProvisioningRuns(c *fiber.Ctx) error {
	runs, err := h.provisioner.ListRuns(c.UserContext(), provisioning.ListRunsParam{
		Status: c.Query("status"),
		Limit:  c.QueryInt("limit", 50),
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"runs": runs, "count": len(runs)})
}

func (h *Handler) GetProvisioningRun(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}

	run, err := h.provisioner.GetRun(c.UserContext(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"run": run})
}

func (h *Handler) ListMembers(c *fiber.Ctx) error {
	orgID, err := queryID(c, "organization_id")
	if err != nil {
		return h.respondError(c, err)
	}

	members, err := h.organisations.ListMembers(c.UserContext(), orgID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"members": members})
}

func (h *Handler) CreateMember(c *fiber.Ctx) error {
	var input organisation.CreateMemberInput
	if err := decode(c, &input); err != nil {
		return h.respondError(c, err)
	}

	member, err := h.organisations.CreateMember(c.UserContext(), input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"member": member})
}

func (h *Handler) UpdateMember(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}

	var input organisation.UpdateMemberInput
	if err := decode(c, &input); err != nil {
		return h.respondError(c, err)
	}

	member, err := h.organisations.UpdateMember(c.UserContext(), id, input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"member": member})
}

func (h *Handler) ListRoles(c *fiber.Ctx) error {
	orgID, err := queryID(c, "organization_id")
	if err != nil {
		return h.respondError(c, err)
	}
	if !orgID.IsSet {
		return badRequest(c, "organization_id is required")
	}

	roles, err := h.organisations.ListRoles(c.UserContext(), orgID.Val)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"roles": roles})
}

func (h *Handler) CreateRole(c *fiber.Ctx) error {
	var input organisation.CreateRoleInput
	if err := decode(c, &input); err != nil {
		return h.respondError(c, err)
	}

	role, err := h.organisations.CreateRole(c.UserContext(), input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"role": role})
}

func (h *Handler) UpdateRole(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return h.respondError(c, err)
	}

	var input organisation.UpdateRoleInput
	if err := decode(c, &input); err != nil {
		return h.respondError(c, err)
	}

	role, err := h.organisations.UpdateRole(c.UserContext(), id, input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"role": role})
}

func (h *Handler) GetRoleTemplate(c *fiber.Ctx) error {
	orgType := c.Params("type")
	if !validator.InEnum(validator.EnumOrganizationType, orgType) {
		return fail(c, fiber.StatusNotFound, "Unknown organization type", nil)
	}
	return c.JSON(fiber.Map{
		"type":  orgType,
		"roles": organisation.RoleTemplates(orgType),
	})
}

func (h *Handler) ListProfiles(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if c.QueryBool("include_organizations", false) {
		profiles, err := h.organisations.ListProfilesWithOrganizations(ctx)
		if err != nil {
			return h.respondError(c, err)
		}
		return c.JSON(fiber.Map{"profiles": profiles})
	}

	profiles, err := h.organisations.ListProfiles(ctx)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"profiles": profiles})
}

func (h *Handler) CreateProfile(c *fiber.Ctx) error {
	var input organisation.CreateProfileInput
	if err := decode(c, &input); err != nil {
		return h.respondError(c, err)
	}

	profile, err := h.organisations.CreateProfile(c.UserContext(), input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"profile": profile})
}

type createUserRequest struct {
	Email    string `json:"email" label:"Email" validate:"required,email"`
	Password string `json:"password" label:"Password" validate:"required"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

func (h *Handler) ListUsers(c *fiber.Ctx) error {
	users, err := h.accounts.List(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

func (h *Handler) CreateUser(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req createUserRequest
	if err := h.parse(c, &req); err != nil {
		return h.respondError(c, err)
	}

	user, err := h.accounts.Create(ctx, account.CreateParams{
		Email:          req.Email,
		Password:       req.Password,
		FullName:       req.FullName,
		Phone:          util.NonEmpty(req.Phone),
		EmailConfirmed: true,
		Metadata:       map[string]any{"full_name": req.FullName},
	})
	if err != nil {
		return h.respondError(c, err)
	}

	h.auditor.Record(ctx, audit.EventTypeAccountCreated, map[string]any{
		"account_id": user.ID,
		"email":      user.Email,
	})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
}

func (h *Handler) ListAuditLog(c *fiber.Ctx) error {
	events, err := h.auditor.List(c.UserContext(), audit.ListParams{
		Type:  c.Query("type"),
		Limit: c.QueryInt("limit", 100),
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"events": events, "count": len(events)})
}
