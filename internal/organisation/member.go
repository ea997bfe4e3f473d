package organisation

import (
	"context"
	"errors"
	"fmt"

	"stabledesk/internal/audit"
	"stabledesk/internal/database"
	"stabledesk/internal/form"
	"stabledesk/internal/util"

	"github.com/google/uuid"
)

// ListMembers lists memberships joined with account, organization and role
// details, most recently joined first. A nil organizationID lists every
// organization's members.
func (m *Manager) ListMembers(ctx context.Context, organizationID util.Optional[uuid.UUID]) ([]database.Membership, error) {
	members, err := m.store.ListMemberships(ctx, database.ListMembershipsParams{OrganizationID: organizationID})
	if err != nil {
		return nil, fmt.Errorf("organisation: failed to list members: %w", err)
	}
	return members, nil
}

type CreateMemberInput struct {
	OrganizationID string    `json:"organization_id" label:"Organization ID" validate:"required,uuid"`
	UserID         string    `json:"user_id" label:"User ID" validate:"required,uuid"`
	RoleID         string    `json:"role_id" label:"Role ID" validate:"required,uuid"`
	IsActive       form.Flag `json:"is_active"`
}

// CreateMember links a user to an organization. The member tuple is written
// first and removed again if the insert fails.
func (m *Manager) CreateMember(ctx context.Context, input CreateMemberInput) (database.OrganizationMember, error) {
	if err := m.validator.Struct(input); err != nil {
		return database.OrganizationMember{}, err
	}

	params := database.CreateOrganizationMemberParams{
		OrganizationID: uuid.MustParse(input.OrganizationID),
		UserID:         uuid.MustParse(input.UserID),
		RoleID:         uuid.MustParse(input.RoleID),
		IsActive:       input.IsActive.Or(true),
	}

	if params.IsActive {
		if err := m.authz.GrantMember(ctx, params.UserID, params.OrganizationID); err != nil {
			return database.OrganizationMember{}, fmt.Errorf("organisation: failed to grant membership: %w", err)
		}
	}

	member, err := m.store.CreateOrganizationMember(ctx, params)
	if err != nil {
		// The insert only matches roles of the member's organization.
		if errors.Is(err, database.ErrRoleNotFound) {
			err = ErrRoleNotInOrganization
		}
		if params.IsActive {
			if revokeErr := m.authz.RevokeMember(ctx, params.UserID, params.OrganizationID); revokeErr != nil {
				err = errors.Join(err, revokeErr)
			}
		}
		return database.OrganizationMember{}, fmt.Errorf("organisation: failed to create member: %w", err)
	}

	m.auditor.Record(ctx, audit.EventTypeMemberCreated, map[string]any{
		"organization_id": member.OrganizationID,
		"user_id":         member.UserID,
		"role_id":         member.RoleID,
	})
	return member, nil
}

type UpdateMemberInput struct {
	RoleID   util.Optional[string] `json:"role_id" label:"Role ID" validate:"omitempty,uuid"`
	IsActive form.Flag             `json:"is_active"`
}

func (m *Manager) UpdateMember(ctx context.Context, id uuid.UUID, input UpdateMemberInput) (database.OrganizationMember, error) {
	if err := m.validator.Struct(input); err != nil {
		return database.OrganizationMember{}, err
	}

	current, err := m.store.GetOrganizationMember(ctx, database.GetOrganizationMemberParams{ID: util.Some(id)})
	if err != nil {
		return database.OrganizationMember{}, fmt.Errorf("organisation: failed to get member: %w", err)
	}

	params := database.UpdateOrganizationMemberParams{IsActive: input.IsActive.Optional()}
	if input.RoleID.IsSet {
		roleID := uuid.MustParse(input.RoleID.Val)
		role, err := m.store.GetRoleByID(ctx, roleID)
		if err != nil {
			return database.OrganizationMember{}, fmt.Errorf("organisation: failed to get role: %w", err)
		}
		if role.OrganizationID != current.OrganizationID {
			return database.OrganizationMember{}, ErrRoleNotInOrganization
		}
		params.RoleID = util.Some(roleID)
	}

	member, err := m.store.UpdateOrganizationMemberByID(ctx, id, params)
	if err != nil {
		return database.OrganizationMember{}, fmt.Errorf("organisation: failed to update member: %w", err)
	}

	switch {
	case member.IsActive && !current.IsActive:
		err = m.authz.GrantMember(ctx, member.UserID, member.OrganizationID)
	case !member.IsActive && current.IsActive:
		err = m.authz.RevokeMember(ctx, member.UserID, member.OrganizationID)
	}
	if err != nil {
		return member, fmt.Errorf("organisation: failed to sync membership tuple: %w", err)
	}

	m.auditor.Record(ctx, audit.EventTypeMemberUpdated, map[string]any{
		"organization_id": member.OrganizationID,
		"member_id":       member.ID,
		"role_id":         member.RoleID,
		"is_active":       member.IsActive,
	})
	return member, nil
}

// VerifyMembership returns the membership of userID in organizationID.
func (m *Manager) VerifyMembership(ctx context.Context, userID, organizationID uuid.UUID) (database.OrganizationMember, error) {
	member, err := m.store.GetOrganizationMember(ctx, database.GetOrganizationMemberParams{
		OrganizationID: util.Some(organizationID),
		UserID:         util.Some(userID),
	})
	if err != nil {
		return database.OrganizationMember{}, fmt.Errorf("organisation: failed to verify membership: %w", err)
	}
	return member, nil
}
