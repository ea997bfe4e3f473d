package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stabledesk/internal/database"
	"stabledesk/internal/organisation"
	"stabledesk/internal/util"

	"github.com/google/uuid"
)

const (
	unknownOrganization = "Unknown Organization"
	unknownType         = "unknown"
	unknownRole         = "Unknown Role"
)

type Store interface {
	ListOrganizations(ctx context.Context, params database.ListOrganizationsParams) ([]database.Organization, error)
	ListUserProfiles(ctx context.Context, params database.ListUserProfilesParams) ([]database.UserProfile, error)
	ListMemberships(ctx context.Context, params database.ListMembershipsParams) ([]database.Membership, error)
}

type Service struct {
	logger *slog.Logger
	store  Store
}

func NewService(logger *slog.Logger, store Store) *Service {
	return &Service{logger: logger, store: store}
}

type Stats struct {
	TotalOrganizations      int                     `json:"totalOrganizations"`
	TrainerOrganizations    int                     `json:"trainerOrganizations"`
	StableOrganizations     int                     `json:"stableOrganizations"`
	EnterpriseOrganizations int                     `json:"enterpriseOrganizations"`
	OrganizationsByType     map[string]int          `json:"organizationsByType"`
	TotalUsers              int                     `json:"totalUsers"`
	Organizations           []database.Organization `json:"organizations"`
	Users                   []database.UserProfile  `json:"users"`
}

// Stats summarises the active organizations and all user profiles.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	orgs, err := s.store.ListOrganizations(ctx, database.ListOrganizationsParams{
		IsActive: util.Some(true),
		OrderBy:  database.OrderByDESC,
	})
	if err != nil {
		return Stats{}, fmt.Errorf("dashboard: failed to list organizations: %w", err)
	}

	profiles, err := s.store.ListUserProfiles(ctx, database.ListUserProfilesParams{})
	if err != nil {
		return Stats{}, fmt.Errorf("dashboard: failed to list profiles: %w", err)
	}

	byType := map[string]int{
		organisation.TypeStable:       0,
		organisation.TypeOrganization: 0,
		organisation.TypeTrainer:      0,
		organisation.TypeEnterprise:   0,
	}
	for _, org := range orgs {
		byType[org.Type]++
	}

	if orgs == nil {
		orgs = []database.Organization{}
	}
	if profiles == nil {
		profiles = []database.UserProfile{}
	}

	return Stats{
		TotalOrganizations:      len(orgs),
		TrainerOrganizations:    byType[organisation.TypeTrainer],
		StableOrganizations:     byType[organisation.TypeStable],
		EnterpriseOrganizations: byType[organisation.TypeEnterprise],
		OrganizationsByType:     byType,
		TotalUsers:              len(profiles),
		Organizations:           orgs,
		Users:                   profiles,
	}, nil
}

type UserOrganization struct {
	ID          uuid.UUID             `json:"id"`
	Name        string                `json:"name"`
	Type        string                `json:"type"`
	Description util.Optional[string] `json:"description"`
	RoleName    string                `json:"role_name"`
	RoleColor   util.Optional[string] `json:"role_color"`
	JoinedAt    time.Time             `json:"joined_at"`
}

type UserWithOrganizations struct {
	ID               uuid.UUID          `json:"id"`
	Email            string             `json:"email"`
	CreatedAt        time.Time          `json:"created_at"`
	DisplayName      string             `json:"display_name"`
	HasOrganizations bool               `json:"has_organizations"`
	Organizations    []UserOrganization `json:"organizations"`
}

// UsersWithOrganizations lists every profile with its active memberships.
// Memberships whose organization or role row is gone keep placeholder names.
func (s *Service) UsersWithOrganizations(ctx context.Context) ([]UserWithOrganizations, error) {
	profiles, err := s.store.ListUserProfiles(ctx, database.ListUserProfilesParams{})
	if err != nil {
		return nil, fmt.Errorf("dashboard: failed to list profiles: %w", err)
	}

	memberships, err := s.store.ListMemberships(ctx, database.ListMembershipsParams{IsActive: util.Some(true)})
	if err != nil {
		return nil, fmt.Errorf("dashboard: failed to list memberships: %w", err)
	}

	byUser := make(map[uuid.UUID][]UserOrganization, len(profiles))
	for _, m := range memberships {
		byUser[m.UserID] = append(byUser[m.UserID], UserOrganization{
			ID:          m.OrganizationID,
			Name:        m.OrganizationName.UnwrapOr(unknownOrganization),
			Type:        m.OrganizationType.UnwrapOr(unknownType),
			Description: m.OrganizationDescription,
			RoleName:    m.RoleName.UnwrapOr(unknownRole),
			RoleColor:   m.RoleColor,
			JoinedAt:    m.JoinedAt,
		})
	}

	users := make([]UserWithOrganizations, 0, len(profiles))
	for _, p := range profiles {
		orgs := byUser[p.UserID]
		if orgs == nil {
			orgs = []UserOrganization{}
		}
		users = append(users, UserWithOrganizations{
			ID:               p.UserID,
			Email:            p.Email,
			CreatedAt:        p.CreatedAt,
			DisplayName:      p.DisplayName.UnwrapOr(p.Email),
			HasOrganizations: len(orgs) > 0,
			Organizations:    orgs,
		})
	}
	return users, nil
}
