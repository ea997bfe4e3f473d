package organisation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"stabledesk/internal/audit"
	"stabledesk/internal/database"
	"stabledesk/internal/form"
	"stabledesk/internal/openfga"
	"stabledesk/internal/util"
	"stabledesk/internal/validator"

	"github.com/google/uuid"
)

var (
	ErrRoleNotInOrganization = errors.New("role does not belong to the member's organization")
)

type Store interface {
	CreateOrganization(ctx context.Context, params database.CreateOrganizationParams) (database.Organization, error)
	GetOrganizationByID(ctx context.Context, id uuid.UUID) (database.Organization, error)
	ListOrganizations(ctx context.Context, params database.ListOrganizationsParams) ([]database.Organization, error)
	UpdateOrganizationByID(ctx context.Context, id uuid.UUID, params database.UpdateOrganizationParams) (database.Organization, error)

	CreateRole(ctx context.Context, params database.CreateRoleParams) (database.Role, error)
	GetRoleByID(ctx context.Context, id uuid.UUID) (database.Role, error)
	ListRoles(ctx context.Context, params database.ListRolesParams) ([]database.Role, error)
	UpdateRoleByID(ctx context.Context, id uuid.UUID, params database.UpdateRoleParams) (database.Role, error)

	CreateOrganizationMember(ctx context.Context, params database.CreateOrganizationMemberParams) (database.OrganizationMember, error)
	GetOrganizationMember(ctx context.Context, params database.GetOrganizationMemberParams) (database.OrganizationMember, error)
	ListMemberships(ctx context.Context, params database.ListMembershipsParams) ([]database.Membership, error)
	UpdateOrganizationMemberByID(ctx context.Context, id uuid.UUID, params database.UpdateOrganizationMemberParams) (database.OrganizationMember, error)

	CreateUserProfile(ctx context.Context, params database.CreateUserProfileParams) (database.UserProfile, error)
	ListUserProfiles(ctx context.Context, params database.ListUserProfilesParams) ([]database.UserProfile, error)
}

// Manager owns organizations and everything scoped to them: roles,
// memberships and the profiles of their users.
type Manager struct {
	logger    *slog.Logger
	store     Store
	validator *validator.Validator
	authz     openfga.Authorizer
	auditor   *audit.Auditor
}

func NewManager(logger *slog.Logger, store Store, v *validator.Validator, authz openfga.Authorizer, auditor *audit.Auditor) *Manager {
	return &Manager{logger: logger, store: store, validator: v, authz: authz, auditor: auditor}
}

type CreateOrganizationInput struct {
	Name             string    `json:"name" label:"Name" validate:"notblank"`
	Type             string    `json:"type" label:"Type" validate:"notblank,enum=organization_type"`
	OwnerID          string    `json:"owner_id" label:"Owner ID" validate:"required,uuid"`
	Description      string    `json:"description"`
	Address          string    `json:"address"`
	Phone            string    `json:"phone"`
	Email            string    `json:"email" label:"Email" validate:"omitempty,email"`
	Website          string    `json:"website"`
	LogoURL          string    `json:"logo_url"`
	SubscriptionTier string    `json:"subscription_tier" label:"Subscription tier" validate:"omitempty,enum=subscription_tier"`
	IsActive         form.Flag `json:"is_active"`
}

func (m *Manager) CreateOrganization(ctx context.Context, input CreateOrganizationInput) (database.Organization, error) {
	if err := m.validator.Struct(input); err != nil {
		return database.Organization{}, err
	}

	tier := input.SubscriptionTier
	if tier == "" {
		tier = TierBasic
	}

	org, err := m.store.CreateOrganization(ctx, database.CreateOrganizationParams{
		Name:             strings.TrimSpace(input.Name),
		Type:             input.Type,
		Description:      util.NonEmpty(input.Description),
		OwnerID:          uuid.MustParse(input.OwnerID),
		Address:          util.NonEmpty(input.Address),
		Phone:            util.NonEmpty(input.Phone),
		Email:            util.NonEmpty(input.Email),
		Website:          util.NonEmpty(input.Website),
		LogoURL:          util.NonEmpty(input.LogoURL),
		Settings:         Settings(input.Type),
		SubscriptionTier: tier,
		IsActive:         input.IsActive.Or(true),
	})
	if err != nil {
		return database.Organization{}, fmt.Errorf("organisation: failed to create organization: %w", err)
	}

	m.auditor.Record(ctx, audit.EventTypeOrganizationCreated, map[string]any{
		"organization_id": org.ID,
		"name":            org.Name,
		"type":            org.Type,
	})
	return org, nil
}

func (m *Manager) GetOrganization(ctx context.Context, id uuid.UUID) (database.Organization, error) {
	org, err := m.store.GetOrganizationByID(ctx, id)
	if err != nil {
		return database.Organization{}, fmt.Errorf("organisation: failed to get organization: %w", err)
	}
	return org, nil
}

type ListOrganizationsParam struct {
	ActiveOnly bool
	Type       string
}

// ListOrganizations lists organizations newest first, each with its live
// member count.
func (m *Manager) ListOrganizations(ctx context.Context, param ListOrganizationsParam) ([]database.Organization, error) {
	params := database.ListOrganizationsParams{
		Type:    util.NonEmpty(param.Type),
		OrderBy: database.OrderByDESC,
	}
	if param.ActiveOnly {
		params.IsActive = util.Some(true)
	}

	orgs, err := m.store.ListOrganizations(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("organisation: failed to list organizations: %w", err)
	}
	return orgs, nil
}

type UpdateOrganizationInput struct {
	Description      util.Optional[string] `json:"description"`
	Address          util.Optional[string] `json:"address"`
	Phone            util.Optional[string] `json:"phone"`
	Email            util.Optional[string] `json:"email" label:"Email" validate:"omitempty,email"`
	Website          util.Optional[string] `json:"website"`
	SubscriptionTier util.Optional[string] `json:"subscription_tier" label:"Subscription tier" validate:"omitempty,enum=subscription_tier"`
	IsActive         form.Flag             `json:"is_active"`
}

func (m *Manager) UpdateOrganization(ctx context.Context, id uuid.UUID, input UpdateOrganizationInput) (database.Organization, error) {
	if err := m.validator.Struct(input); err != nil {
		return database.Organization{}, err
	}

	org, err := m.store.UpdateOrganizationByID(ctx, id, database.UpdateOrganizationParams{
		Description:      input.Description,
		Address:          input.Address,
		Phone:            input.Phone,
		Email:            input.Email,
		Website:          input.Website,
		SubscriptionTier: input.SubscriptionTier,
		IsActive:         input.IsActive.Optional(),
	})
	if err != nil {
		return database.Organization{}, fmt.Errorf("organisation: failed to update organization: %w", err)
	}

	m.auditor.Record(ctx, audit.EventTypeOrganizationUpdated, map[string]any{"organization_id": org.ID})
	return org, nil
}
