package organisation

import (
	"context"
	"fmt"
	"time"

	"stabledesk/internal/audit"
	"stabledesk/internal/database"
	"stabledesk/internal/form"
	"stabledesk/internal/util"

	"github.com/google/uuid"
)

type ProfileOrganization struct {
	ID          uuid.UUID             `json:"id"`
	Name        string                `json:"name"`
	Type        string                `json:"type"`
	Description util.Optional[string] `json:"description"`
	MemberRole  uuid.UUID             `json:"member_role"`
	JoinedAt    time.Time             `json:"joined_at"`
	IsActive    bool                  `json:"is_active"`
}

type ProfileWithOrganizations struct {
	database.UserProfile
	Organizations []ProfileOrganization `json:"organizations"`
}

func (m *Manager) ListProfiles(ctx context.Context) ([]database.UserProfile, error) {
	profiles, err := m.store.ListUserProfiles(ctx, database.ListUserProfilesParams{})
	if err != nil {
		return nil, fmt.Errorf("organisation: failed to list profiles: %w", err)
	}
	return profiles, nil
}

// ListProfilesWithOrganizations attaches every membership, active or not, to
// its user's profile.
func (m *Manager) ListProfilesWithOrganizations(ctx context.Context) ([]ProfileWithOrganizations, error) {
	profiles, err := m.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}

	memberships, err := m.store.ListMemberships(ctx, database.ListMembershipsParams{})
	if err != nil {
		return nil, fmt.Errorf("organisation: failed to list memberships: %w", err)
	}

	byUser := make(map[uuid.UUID][]ProfileOrganization)
	for _, ms := range memberships {
		if !ms.OrganizationName.IsSet {
			continue
		}
		byUser[ms.UserID] = append(byUser[ms.UserID], ProfileOrganization{
			ID:          ms.OrganizationID,
			Name:        ms.OrganizationName.Val,
			Type:        ms.OrganizationType.UnwrapOr(""),
			Description: ms.OrganizationDescription,
			MemberRole:  ms.RoleID,
			JoinedAt:    ms.JoinedAt,
			IsActive:    ms.IsActive,
		})
	}

	out := make([]ProfileWithOrganizations, 0, len(profiles))
	for _, p := range profiles {
		orgs := byUser[p.UserID]
		if orgs == nil {
			orgs = []ProfileOrganization{}
		}
		out = append(out, ProfileWithOrganizations{UserProfile: p, Organizations: orgs})
	}
	return out, nil
}

type CreateProfileInput struct {
	UserID      string    `json:"user_id" label:"User ID" validate:"required,uuid"`
	AccountType string    `json:"account_type" label:"Account type" validate:"omitempty,enum=account_type"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio"`
	IsActive    form.Flag `json:"is_active"`
}

func (m *Manager) CreateProfile(ctx context.Context, input CreateProfileInput) (database.UserProfile, error) {
	if err := m.validator.Struct(input); err != nil {
		return database.UserProfile{}, err
	}

	accountType := input.AccountType
	if accountType == "" {
		accountType = "personal"
	}

	profile, err := m.store.CreateUserProfile(ctx, database.CreateUserProfileParams{
		UserID:      uuid.MustParse(input.UserID),
		AccountType: accountType,
		DisplayName: util.NonEmpty(input.DisplayName),
		Bio:         util.NonEmpty(input.Bio),
		IsActive:    input.IsActive.Or(true),
	})
	if err != nil {
		return database.UserProfile{}, fmt.Errorf("organisation: failed to create profile: %w", err)
	}

	m.auditor.Record(ctx, audit.EventTypeProfileCreated, map[string]any{
		"profile_id": profile.ID,
		"user_id":    profile.UserID,
	})
	return profile, nil
}
