package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"stabledesk/internal/database"
	"stabledesk/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListOrganizations(ctx context.Context, params database.ListOrganizationsParams) ([]database.Organization, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]database.Organization), args.Error(1)
}

func (m *mockStore) ListUserProfiles(ctx context.Context, params database.ListUserProfilesParams) ([]database.UserProfile, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]database.UserProfile), args.Error(1)
}

func (m *mockStore) ListMemberships(ctx context.Context, params database.ListMembershipsParams) ([]database.Membership, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]database.Membership), args.Error(1)
}

func newTestService(store Store) *Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), store)
}

func TestStats(t *testing.T) {
	store := new(mockStore)
	s := newTestService(store)

	store.On("ListOrganizations", mock.Anything, database.ListOrganizationsParams{
		IsActive: util.Some(true),
		OrderBy:  database.OrderByDESC,
	}).Return([]database.Organization{
		{ID: uuid.New(), Type: "trainer", MemberCount: 3},
		{ID: uuid.New(), Type: "stable", MemberCount: 1},
		{ID: uuid.New(), Type: "stable"},
		{ID: uuid.New(), Type: "enterprise"},
	}, nil).Once()
	store.On("ListUserProfiles", mock.Anything, database.ListUserProfilesParams{}).
		Return([]database.UserProfile{{ID: uuid.New()}, {ID: uuid.New()}}, nil).Once()

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalOrganizations)
	assert.Equal(t, 1, stats.TrainerOrganizations)
	assert.Equal(t, 2, stats.StableOrganizations)
	assert.Equal(t, 1, stats.EnterpriseOrganizations)
	assert.Equal(t, map[string]int{"stable": 2, "organization": 0, "trainer": 1, "enterprise": 1}, stats.OrganizationsByType)
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, int64(3), stats.Organizations[0].MemberCount)

	store.AssertExpectations(t)
	store.AssertNumberOfCalls(t, "ListOrganizations", 1)
	store.AssertNumberOfCalls(t, "ListUserProfiles", 1)
}

func TestStatsEmpty(t *testing.T) {
	store := new(mockStore)
	s := newTestService(store)

	store.On("ListOrganizations", mock.Anything, mock.Anything).Return([]database.Organization(nil), nil)
	store.On("ListUserProfiles", mock.Anything, mock.Anything).Return([]database.UserProfile(nil), nil)

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalOrganizations)
	assert.NotNil(t, stats.Organizations)
	assert.NotNil(t, stats.Users)
	assert.Len(t, stats.OrganizationsByType, 4)
}

func TestStatsBackendError(t *testing.T) {
	store := new(mockStore)
	s := newTestService(store)

	store.On("ListOrganizations", mock.Anything, mock.Anything).Return([]database.Organization(nil), errors.New("boom"))

	_, err := s.Stats(context.Background())
	assert.ErrorContains(t, err, "boom")
	store.AssertNotCalled(t, "ListUserProfiles", mock.Anything, mock.Anything)
}

func TestUsersWithOrganizations(t *testing.T) {
	store := new(mockStore)
	s := newTestService(store)

	alice, bob := uuid.New(), uuid.New()
	orgID := uuid.New()
	joined := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	store.On("ListUserProfiles", mock.Anything, database.ListUserProfilesParams{}).Return([]database.UserProfile{
		{UserID: alice, Email: "alice@example.test", DisplayName: util.Some("Alice")},
		{UserID: bob, Email: "bob@example.test"},
	}, nil)
	store.On("ListMemberships", mock.Anything, database.ListMembershipsParams{IsActive: util.Some(true)}).Return([]database.Membership{
		{
			OrganizationMember: database.OrganizationMember{UserID: alice, OrganizationID: orgID, JoinedAt: joined},
			OrganizationName:   util.Some("Willow Creek"),
			OrganizationType:   util.Some("stable"),
			RoleName:           util.Some("Stable Owner"),
			RoleColor:          util.Some("#007AFF"),
		},
		{
			OrganizationMember: database.OrganizationMember{UserID: alice, OrganizationID: uuid.New()},
		},
	}, nil)

	users, err := s.UsersWithOrganizations(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)

	a := users[0]
	assert.Equal(t, "Alice", a.DisplayName)
	assert.True(t, a.HasOrganizations)
	require.Len(t, a.Organizations, 2)
	assert.Equal(t, UserOrganization{
		ID:        orgID,
		Name:      "Willow Creek",
		Type:      "stable",
		RoleName:  "Stable Owner",
		RoleColor: util.Some("#007AFF"),
		JoinedAt:  joined,
	}, a.Organizations[0])
	assert.Equal(t, "Unknown Organization", a.Organizations[1].Name)
	assert.Equal(t, "unknown", a.Organizations[1].Type)
	assert.Equal(t, "Unknown Role", a.Organizations[1].RoleName)

	b := users[1]
	assert.Equal(t, "bob@example.test", b.DisplayName)
	assert.False(t, b.HasOrganizations)
	assert.Equal(t, []UserOrganization{}, b.Organizations)
}
