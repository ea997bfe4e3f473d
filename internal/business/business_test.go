package business

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"stabledesk/internal/database"
	"stabledesk/internal/util"
	"stabledesk/internal/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateHorses(ctx context.Context, params []database.CreateHorseParams) ([]database.Horse, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]database.Horse), args.Error(1)
}

func (m *mockStore) GetHorseByID(ctx context.Context, id uuid.UUID) (database.Horse, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(database.Horse), args.Error(1)
}

func (m *mockStore) ListHorses(ctx context.Context, params database.ListHorsesParams) ([]database.Horse, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]database.Horse), args.Error(1)
}

func (m *mockStore) AppendHorsePhoto(ctx context.Context, id uuid.UUID, url string) (database.Horse, error) {
	args := m.Called(ctx, id, url)
	return args.Get(0).(database.Horse), args.Error(1)
}

func (m *mockStore) CreateConsumables(ctx context.Context, params []database.CreateConsumableParams) ([]database.Consumable, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]database.Consumable), args.Error(1)
}

func (m *mockStore) ListConsumables(ctx context.Context, params database.ListConsumablesParams) ([]database.Consumable, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]database.Consumable), args.Error(1)
}

func (m *mockStore) CreateTransactionTypes(ctx context.Context, params []database.CreateTransactionTypeParams) ([]database.TransactionType, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]database.TransactionType), args.Error(1)
}

func (m *mockStore) ListTransactionTypes(ctx context.Context, params database.ListTransactionTypesParams) ([]database.TransactionType, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]database.TransactionType), args.Error(1)
}

type memoryPhotos struct {
	objects map[string][]byte
	failPut bool
}

func (p *memoryPhotos) Store(ctx context.Context, prefix, filename string, content io.Reader, size int64, contentType string) (string, error) {
	if p.failPut {
		return "", errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	key := prefix + "/" + filename
	p.objects[key] = data
	return key, nil
}

func (p *memoryPhotos) Delete(ctx context.Context, key string) error {
	delete(p.objects, key)
	return nil
}

func (p *memoryPhotos) URL(key string) string {
	return "/uploads/" + key
}

func newTestManager(store Store, photos PhotoStore) *Manager {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(logger, store, validator.New(), photos, nil, nil)
}

func decode[T any](t *testing.T, raw string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestCreateHorsesDefaults(t *testing.T) {
	store := new(mockStore)
	m := newTestManager(store, nil)

	userID := uuid.New()
	horses := decode[[]HorseInput](t, `[{"name":"Comet","breed":"Arabian","gender":"mare","height_hands":"15.2","weight_kg":""}]`)

	var captured []database.CreateHorseParams
	store.On("CreateHorses", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).([]database.CreateHorseParams) }).
		Return([]database.Horse{{ID: uuid.New(), Name: "Comet"}}, nil)

	created, err := m.CreateHorses(context.Background(), Owner{UserID: util.Some(userID)}, horses)
	require.NoError(t, err)
	assert.Len(t, created, 1)

	require.Len(t, captured, 1)
	h := captured[0]
	assert.Equal(t, util.Some(15.2), h.HeightHands)
	assert.False(t, h.WeightKg.IsSet)
	assert.Equal(t, "active", h.Status)
	assert.True(t, h.IsActive)
	assert.Equal(t, []string{}, h.DietaryRestrictions)
	assert.Equal(t, []string{}, h.Photos)
	assert.Equal(t, map[string]any{}, h.InsuranceDetails)
	assert.Equal(t, util.Some(userID), h.CreatedBy)
	assert.False(t, h.OrganizationID.IsSet)
	store.AssertExpectations(t)
}

func TestCreateHorsesRejections(t *testing.T) {
	tests := []struct {
		name    string
		owner   Owner
		horses  []HorseInput
		message string
		errors  []string
	}{
		{
			name:    "no owner",
			horses:  []HorseInput{{Name: "Comet"}},
			message: "User ID or Organization ID is required",
			errors:  []string{"user_id or organization_id must be provided"},
		},
		{
			name:    "empty list",
			owner:   Owner{OrganizationID: util.Some(uuid.New())},
			message: "At least one horse is required",
			errors:  []string{"horses array cannot be empty"},
		},
		{
			name:    "field errors",
			owner:   Owner{OrganizationID: util.Some(uuid.New())},
			horses:  []HorseInput{{Name: "Comet", Breed: "Arabian", Gender: "mare"}, {Name: " "}},
			message: "Validation errors found",
			errors:  []string{"Horse 2: Name is required", "Horse 2: Breed is required", "Horse 2: Gender is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mockStore)
			m := newTestManager(store, nil)

			_, err := m.CreateHorses(context.Background(), tt.owner, tt.horses)

			var reqErr *RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tt.message, reqErr.Message)
			assert.Equal(t, tt.errors, reqErr.Errors)
			store.AssertNotCalled(t, "CreateHorses", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateHorsesInsertFailure(t *testing.T) {
	store := new(mockStore)
	m := newTestManager(store, nil)

	store.On("CreateHorses", mock.Anything, mock.Anything).Return([]database.Horse(nil), errors.New("connection reset"))

	_, err := m.CreateHorses(context.Background(), Owner{UserID: util.Some(uuid.New())},
		[]HorseInput{{Name: "Comet", Breed: "Arabian", Gender: "mare"}})

	var insertErr *InsertError
	require.ErrorAs(t, err, &insertErr)
	assert.Equal(t, "Failed to insert horses into database", insertErr.Message)
	assert.EqualError(t, insertErr.Err, "connection reset")
}

func TestListHorsesPrefersOrganization(t *testing.T) {
	store := new(mockStore)
	m := newTestManager(store, nil)

	orgID := uuid.New()
	store.On("ListHorses", mock.Anything, database.ListHorsesParams{
		OrganizationID: util.Some(orgID),
		IsActive:       util.Some(true),
	}).Return([]database.Horse{}, nil)

	_, err := m.ListHorses(context.Background(), Owner{UserID: util.Some(uuid.New()), OrganizationID: util.Some(orgID)})
	require.NoError(t, err)
	store.AssertExpectations(t)

	_, err = m.ListHorses(context.Background(), Owner{})
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "Either user_id or organization_id is required", reqErr.Message)
}

func TestParseOwner(t *testing.T) {
	id := uuid.New()
	owner, err := ParseOwner(" "+id.String()+" ", "")
	require.NoError(t, err)
	assert.Equal(t, util.Some(id), owner.UserID)
	assert.False(t, owner.OrganizationID.IsSet)

	_, err = ParseOwner("", "not-a-uuid")
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, []string{"organization_id must be a valid id"}, reqErr.Errors)
}

func TestCreateConsumablesValidation(t *testing.T) {
	store := new(mockStore)
	m := newTestManager(store, nil)

	consumables := decode[[]ConsumableInput](t, `[
		{"name":"Hay","type":"feed","category":"Hay","default_quantity":"1","default_unit_type":"bale","current_stock":10,"minimum_stock":2,"reorder_point":4},
		{"name":"","type":"","category":"","default_quantity":0,"default_unit_type":"","current_stock":-1,"minimum_stock":-1,"reorder_point":-1},
		{"name":"Bute","type":"medicine","category":"Hay","default_quantity":1,"default_unit_type":"tube","current_stock":0,"minimum_stock":0,"reorder_point":0}
	]`)

	_, err := m.CreateConsumables(context.Background(), Owner{OrganizationID: util.Some(uuid.New())}, consumables)

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "Validation errors found", reqErr.Message)
	assert.Equal(t, []string{
		"Consumable 2: Name is required",
		"Consumable 2: Type is required",
		"Consumable 2: Category is required",
		"Consumable 2: Default quantity must be greater than 0",
		"Consumable 2: Unit type is required",
		"Consumable 2: Current stock must be non-negative",
		"Consumable 2: Minimum stock must be non-negative",
		"Consumable 2: Reorder point must be non-negative",
		"Consumable 3: Category does not belong to the selected type",
	}, reqErr.Errors)
}

func TestCreateConsumablesDefaults(t *testing.T) {
	store := new(mockStore)
	m := newTestManager(store, nil)

	consumables := decode[[]ConsumableInput](t, `[{"name":"Hay","type":"feed","category":"Hay","default_quantity":1,"default_unit_type":"bale","current_stock":"10","minimum_stock":2,"reorder_point":4}]`)

	var captured []database.CreateConsumableParams
	store.On("CreateConsumables", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).([]database.CreateConsumableParams) }).
		Return([]database.Consumable{{ID: uuid.New()}}, nil)

	created, err := m.CreateConsumables(context.Background(), Owner{UserID: util.Some(uuid.New())}, consumables)
	require.NoError(t, err)
	assert.Len(t, created, 1)

	c := captured[0]
	assert.True(t, c.CostPerUnit.Equal(decimal.Zero))
	assert.Equal(t, int64(0), c.WithdrawalPeriodDays)
	assert.Equal(t, 10.0, c.CurrentStock)
	assert.True(t, c.IsActive)
	assert.False(t, c.IsDefault)
	assert.False(t, c.RequiresPrescription)
	assert.Equal(t, map[string]any{}, c.Specifications)
}

func TestCreateTransactionTypes(t *testing.T) {
	t.Run("requires organization", func(t *testing.T) {
		m := newTestManager(new(mockStore), nil)
		_, err := m.CreateTransactionTypes(context.Background(), util.None[uuid.UUID](), util.None[uuid.UUID](), []TransactionTypeInput{{Name: "x"}})

		var reqErr *RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, "Organization ID is required", reqErr.Message)
	})

	t.Run("validation messages", func(t *testing.T) {
		store := new(mockStore)
		m := newTestManager(store, nil)
		types := decode[[]TransactionTypeInput](t, `[
			{"name":"","category":"","unit_type":"","billing_frequency":"","default_rate":-5,"price_range_min":-1,"price_range_max":-2},
			{"name":"Lesson","category":"training","unit_type":"hour","billing_frequency":"session","default_rate":75,"price_range_min":100,"price_range_max":50},
			{"name":"Hack","category":"training","unit_type":"hour","billing_frequency":"session","default_rate":40,"price_range_min":5,"price_range_max":0},
			{"name":"Trail","category":"training","unit_type":"hour","billing_frequency":"session","default_rate":40,"price_range_min":5,"price_range_max":"0"}
		]`)

		_, err := m.CreateTransactionTypes(context.Background(), util.Some(uuid.New()), util.None[uuid.UUID](), types)

		var reqErr *RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, []string{
			"Transaction type 1: Name is required",
			"Transaction type 1: Category is required",
			"Transaction type 1: Default rate must be non-negative",
			"Transaction type 1: Unit type is required",
			"Transaction type 1: Billing frequency is required",
			"Transaction type 1: Price range min must be non-negative",
			"Transaction type 1: Price range max must be non-negative",
			"Transaction type 2: Price range min cannot be greater than max",
			"Transaction type 3: Price range min cannot be greater than max",
			"Transaction type 4: Price range min cannot be greater than max",
		}, reqErr.Errors)
		store.AssertNotCalled(t, "CreateTransactionTypes", mock.Anything, mock.Anything)
	})

	t.Run("defaults", func(t *testing.T) {
		store := new(mockStore)
		m := newTestManager(store, nil)
		orgID := uuid.New()

		var captured []database.CreateTransactionTypeParams
		store.On("CreateTransactionTypes", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { captured = args.Get(1).([]database.CreateTransactionTypeParams) }).
			Return([]database.TransactionType{{ID: uuid.New()}}, nil)

		types := decode[[]TransactionTypeInput](t, `[{"name":"Lesson","category":"training","unit_type":"hour","billing_frequency":"session","default_rate":"75.50","price_range_min":0}]`)
		_, err := m.CreateTransactionTypes(context.Background(), util.Some(orgID), util.None[uuid.UUID](), types)
		require.NoError(t, err)

		p := captured[0]
		assert.Equal(t, orgID, p.OrganizationID)
		assert.Equal(t, "75.5", p.DefaultRate.String())
		assert.False(t, p.PriceRangeMin.IsSet)
		assert.False(t, p.PriceRangeMax.IsSet)
		assert.Equal(t, "standard", p.ServiceTier)
		assert.True(t, p.IsActive)
		assert.False(t, p.RequiresApproval)
		assert.False(t, p.IsRecurring)
		assert.Equal(t, int64(0), p.BillingCycleDays)
		assert.Equal(t, int64(0), p.MaxTasksPerCycle)
	})
}

func TestServiceTemplates(t *testing.T) {
	all, err := ServiceTemplates("")
	require.NoError(t, err)
	assert.Len(t, all, 9)

	training, err := ServiceTemplates("training")
	require.NoError(t, err)
	require.Len(t, training, 1)
	first := training["training"][0]
	assert.Equal(t, "Basic Training Session", first.Name)
	assert.Equal(t, "training", first.Category)
	assert.True(t, first.DefaultRate.Equal(decimal.NewFromInt(75)))
	assert.Equal(t, "hour", first.UnitType)
	assert.Equal(t, "session", first.BillingFrequency)
	assert.Equal(t, "standard", first.ServiceTier)

	boarding, err := ServiceTemplates("boarding")
	require.NoError(t, err)
	for _, tmpl := range boarding["boarding"] {
		assert.True(t, tmpl.IsRecurring, tmpl.Name)
	}

	_, err = ServiceTemplates("astrology")
	var reqErr *RequestError
	assert.ErrorAs(t, err, &reqErr)

	assert.Equal(t, "training", ServiceCategories()[0])
}

func TestAddHorsePhoto(t *testing.T) {
	horseID := uuid.New()

	t.Run("stores and appends", func(t *testing.T) {
		store := new(mockStore)
		photos := &memoryPhotos{objects: map[string][]byte{}}
		m := newTestManager(store, photos)

		store.On("GetHorseByID", mock.Anything, horseID).Return(database.Horse{ID: horseID}, nil)
		store.On("AppendHorsePhoto", mock.Anything, horseID, "/uploads/horses/"+horseID.String()+"/comet.jpg").
			Return(database.Horse{ID: horseID, Photos: []string{"/uploads/horses/" + horseID.String() + "/comet.jpg"}}, nil)

		horse, err := m.AddHorsePhoto(context.Background(), horseID, PhotoUpload{
			Filename: "comet.jpg", ContentType: "image/jpeg", Size: 4, Content: bytes.NewReader([]byte("jpeg")),
		})
		require.NoError(t, err)
		assert.Len(t, horse.Photos, 1)
		assert.Len(t, photos.objects, 1)
		store.AssertExpectations(t)
	})

	t.Run("rejects unsupported type", func(t *testing.T) {
		m := newTestManager(new(mockStore), &memoryPhotos{objects: map[string][]byte{}})
		_, err := m.AddHorsePhoto(context.Background(), horseID, PhotoUpload{ContentType: "application/pdf", Content: strings.NewReader("")})
		var reqErr *RequestError
		assert.ErrorAs(t, err, &reqErr)
	})

	t.Run("rejects oversized", func(t *testing.T) {
		m := newTestManager(new(mockStore), &memoryPhotos{objects: map[string][]byte{}})
		_, err := m.AddHorsePhoto(context.Background(), horseID, PhotoUpload{ContentType: "image/png", Size: MaxPhotoSize + 1, Content: strings.NewReader("")})
		var reqErr *RequestError
		assert.ErrorAs(t, err, &reqErr)
	})

	t.Run("missing horse", func(t *testing.T) {
		store := new(mockStore)
		m := newTestManager(store, &memoryPhotos{objects: map[string][]byte{}})
		store.On("GetHorseByID", mock.Anything, horseID).Return(database.Horse{}, database.ErrHorseNotFound)

		_, err := m.AddHorsePhoto(context.Background(), horseID, PhotoUpload{ContentType: "image/webp", Size: 1, Content: strings.NewReader("x")})
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("removes object when append fails", func(t *testing.T) {
		store := new(mockStore)
		photos := &memoryPhotos{objects: map[string][]byte{}}
		m := newTestManager(store, photos)
		store.On("GetHorseByID", mock.Anything, horseID).Return(database.Horse{ID: horseID}, nil)
		store.On("AppendHorsePhoto", mock.Anything, horseID, mock.Anything).Return(database.Horse{}, errors.New("db down"))

		_, err := m.AddHorsePhoto(context.Background(), horseID, PhotoUpload{Filename: "a.png", ContentType: "image/png", Size: 1, Content: strings.NewReader("x")})
		require.Error(t, err)
		assert.Empty(t, photos.objects)
	})
}
