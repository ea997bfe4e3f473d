package organisation

import (
	"context"
	"fmt"
	"strings"

	"stabledesk/internal/audit"
	"stabledesk/internal/database"
	"stabledesk/internal/util"

	"github.com/google/uuid"
)

func (m *Manager) ListRoles(ctx context.Context, organizationID uuid.UUID) ([]database.Role, error) {
	roles, err := m.store.ListRoles(ctx, database.ListRolesParams{OrganizationID: util.Some(organizationID)})
	if err != nil {
		return nil, fmt.Errorf("organisation: failed to list roles: %w", err)
	}
	return roles, nil
}

type CreateRoleInput struct {
	OrganizationID string   `json:"organization_id" label:"Organization ID" validate:"required,uuid"`
	Name           string   `json:"name" label:"Name" validate:"notblank"`
	Description    string   `json:"description"`
	Permissions    []string `json:"permissions" label:"Permission" validate:"dive,enum=role_permission"`
	Color          string   `json:"color" label:"Color" validate:"omitempty,hexcolor"`
}

// CreateRole stores a custom role. The capability flags always follow the
// permission list.
func (m *Manager) CreateRole(ctx context.Context, input CreateRoleInput) (database.Role, error) {
	if err := m.validator.Struct(input); err != nil {
		return database.Role{}, err
	}

	role, err := m.store.CreateRole(ctx, roleParams(
		uuid.MustParse(input.OrganizationID),
		strings.TrimSpace(input.Name),
		input.Description,
		input.Permissions,
		util.NonEmpty(input.Color),
	))
	if err != nil {
		return database.Role{}, fmt.Errorf("organisation: failed to create role: %w", err)
	}

	m.auditor.Record(ctx, audit.EventTypeRoleCreated, map[string]any{
		"organization_id": role.OrganizationID,
		"role_id":         role.ID,
		"name":            role.Name,
	})
	return role, nil
}

type UpdateRoleInput struct {
	Name        util.Optional[string] `json:"name" label:"Name" validate:"omitempty,notblank"`
	Description util.Optional[string] `json:"description"`
	Permissions *[]string             `json:"permissions" label:"Permission" validate:"omitempty,dive,enum=role_permission"`
	Color       util.Optional[string] `json:"color" label:"Color" validate:"omitempty,hexcolor"`
}

func (m *Manager) UpdateRole(ctx context.Context, id uuid.UUID, input UpdateRoleInput) (database.Role, error) {
	if err := m.validator.Struct(input); err != nil {
		return database.Role{}, err
	}

	params := database.UpdateRoleParams{
		Name:        input.Name,
		Description: input.Description,
		Color:       input.Color,
	}
	if params.Name.IsSet {
		params.Name = util.Some(strings.TrimSpace(params.Name.Val))
	}
	if input.Permissions != nil {
		permissions := *input.Permissions
		if permissions == nil {
			permissions = []string{}
		}
		flags := DeriveFlags(permissions)
		params.Permissions = util.Some(permissions)
		params.CanAssignTasks = util.Some(flags.CanAssignTasks)
		params.CanManageHorses = util.Some(flags.CanManageHorses)
		params.CanViewAllHorses = util.Some(flags.CanViewAllHorses)
		params.CanManageOrganization = util.Some(flags.CanManageOrganization)
	}

	role, err := m.store.UpdateRoleByID(ctx, id, params)
	if err != nil {
		return database.Role{}, fmt.Errorf("organisation: failed to update role: %w", err)
	}

	m.auditor.Record(ctx, audit.EventTypeRoleUpdated, map[string]any{
		"organization_id": role.OrganizationID,
		"role_id":         role.ID,
	})
	return role, nil
}
