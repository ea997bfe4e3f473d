package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stabledesk/internal/account"
	"stabledesk/internal/business"
	"stabledesk/internal/config"
	"stabledesk/internal/database"
	"stabledesk/internal/ratelimit"
	"stabledesk/internal/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	operatorEmail    = "ops@stabledesk.test"
	operatorPassword = "Sup3r$ecret"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(ctx context.Context) error {
	return p.err
}

type memoryOperators struct {
	operators map[string]database.Operator
}

func newMemoryOperators(t *testing.T) *memoryOperators {
	t.Helper()
	hash, err := account.HashPassword(operatorPassword)
	require.NoError(t, err)

	op := database.Operator{
		ID:           uuid.New(),
		Email:        operatorEmail,
		Name:         "Ops",
		PasswordHash: hash,
		IsActive:     true,
	}
	return &memoryOperators{operators: map[string]database.Operator{op.Email: op}}
}

func (m *memoryOperators) CreateOperator(ctx context.Context, params database.CreateOperatorParams) (database.Operator, error) {
	if _, ok := m.operators[params.Email]; ok {
		return database.Operator{}, database.ErrConflict
	}
	op := database.Operator{ID: uuid.New(), Email: params.Email, Name: params.Name, PasswordHash: params.PasswordHash, IsActive: true}
	m.operators[op.Email] = op
	return op, nil
}

func (m *memoryOperators) GetOperator(ctx context.Context, params database.GetOperatorParams) (database.Operator, error) {
	for _, op := range m.operators {
		if params.Email.IsSet && op.Email == params.Email.Val {
			return op, nil
		}
		if params.ID.IsSet && op.ID == params.ID.Val {
			return op, nil
		}
	}
	return database.Operator{}, database.ErrOperatorNotFound
}

func (m *memoryOperators) ListOperators(ctx context.Context) ([]database.Operator, error) {
	out := make([]database.Operator, 0, len(m.operators))
	for _, op := range m.operators {
		out = append(out, op)
	}
	return out, nil
}

func (m *memoryOperators) TouchOperatorLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

type mockBusinessStore struct {
	mock.Mock
}

func (m *mockBusinessStore) CreateHorses(ctx context.Context, params []database.CreateHorseParams) ([]database.Horse, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]database.Horse), args.Error(1)
}

func (m *mockBusinessStore) GetHorseByID(ctx context.Context, id uuid.UUID) (database.Horse, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(database.Horse), args.Error(1)
}

func (m *mockBusinessStore) ListHorses(ctx context.Context, params database.ListHorsesParams) ([]database.Horse, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]database.Horse), args.Error(1)
}

func (m *mockBusinessStore) AppendHorsePhoto(ctx context.Context, id uuid.UUID, url string) (database.Horse, error) {
	args := m.Called(ctx, id, url)
	return args.Get(0).(database.Horse), args.Error(1)
}

func (m *mockBusinessStore) CreateConsumables(ctx context.Context, params []database.CreateConsumableParams) ([]database.Consumable, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]database.Consumable), args.Error(1)
}

func (m *mockBusinessStore) ListConsumables(ctx context.Context, params database.ListConsumablesParams) ([]database.Consumable, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]database.Consumable), args.Error(1)
}

func (m *mockBusinessStore) CreateTransactionTypes(ctx context.Context, params []database.CreateTransactionTypeParams) ([]database.TransactionType, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]database.TransactionType), args.Error(1)
}

func (m *mockBusinessStore) ListTransactionTypes(ctx context.Context, params database.ListTransactionTypesParams) ([]database.TransactionType, error) {
	args := m.Called(ctx, params)
	return args.Get(0).([]database.TransactionType), args.Error(1)
}

type blockingLimiter struct{}

func (blockingLimiter) Check(ctx context.Context, ip, email string) error {
	return ratelimit.ErrTooManyAttempts
}

func (blockingLimiter) Reset(ctx context.Context, ip, email string) error {
	return nil
}

type testApp struct {
	app   *fiber.App
	store *mockBusinessStore
}

func newTestApp(t *testing.T, opts ...func(*Deps)) testApp {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := validator.New()
	store := &mockBusinessStore{}
	serverCfg := config.ServerConfig{SessionTTL: time.Hour, LoginMaxAttempts: 5, LoginWindow: time.Minute}

	deps := Deps{
		Logger:        logger,
		Server:        serverCfg,
		DB:            stubPinger{},
		Sessions:      NewSessionStore(nil, serverCfg),
		Validator:     v,
		Authenticator: account.NewAuthenticator(logger, newMemoryOperators(t), v, nil),
		Business:      business.NewManager(logger, store, v, nil, nil, nil),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return testApp{app: NewApp(deps), store: store}
}

func (ta testApp) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (ta testApp) login(t *testing.T) *http.Cookie {
	t.Helper()

	resp := ta.do(t, fiber.MethodPost, "/api/auth/login", `{"email":"`+operatorEmail+`","password":"`+operatorPassword+`"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestLoginSetsSessionCookie(t *testing.T) {
	ta := newTestApp(t)

	resp := ta.do(t, fiber.MethodPost, "/api/auth/login", `{"email":"OPS@stabledesk.test","password":"`+operatorPassword+`"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	setCookie := resp.Header.Get(fiber.HeaderSetCookie)
	assert.Contains(t, setCookie, SessionCookieName+"=")
	assert.Contains(t, strings.ToLower(setCookie), "httponly")
	assert.Contains(t, strings.ToLower(setCookie), "samesite=strict")

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	operator, ok := body["operator"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, operatorEmail, operator["email"])
	assert.NotContains(t, operator, "password_hash")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	tests := []struct {
		name  string
		email string
	}{
		{name: "wrong_password", email: operatorEmail},
		{name: "unknown_email", email: "nobody@stabledesk.test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t)

			resp := ta.do(t, fiber.MethodPost, "/api/auth/login", `{"email":"`+tt.email+`","password":"Wr0ng$pass"}`)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
			assert.Empty(t, resp.Header.Get(fiber.HeaderSetCookie))

			body := decodeBody(t, resp)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "Invalid email or password", body["message"])
		})
	}
}

func TestLoginRateLimited(t *testing.T) {
	ta := newTestApp(t, func(d *Deps) { d.LoginLimiter = blockingLimiter{} })

	resp := ta.do(t, fiber.MethodPost, "/api/auth/login", `{"email":"`+operatorEmail+`","password":"`+operatorPassword+`"}`)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Empty(t, resp.Header.Get(fiber.HeaderSetCookie))
}

func TestFallbackLimiterBlocksAfterMaxAttempts(t *testing.T) {
	ta := newTestApp(t, func(d *Deps) { d.Server.LoginMaxAttempts = 2 })

	for i := 0; i < 2; i++ {
		resp := ta.do(t, fiber.MethodPost, "/api/auth/login", `{"email":"`+operatorEmail+`","password":"Wr0ng$pass"}`)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	}

	resp := ta.do(t, fiber.MethodPost, "/api/auth/login", `{"email":"`+operatorEmail+`","password":"`+operatorPassword+`"}`)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	ta := newTestApp(t)

	for _, path := range []string{"/api/dashboard", "/api/organizations", "/api/auth/session", "/api/business-setup/horses/existing"} {
		t.Run(path, func(t *testing.T) {
			resp := ta.do(t, fiber.MethodGet, path, "")
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

			body := decodeBody(t, resp)
			assert.Equal(t, false, body["success"])
		})
	}
}

func TestSessionAndLogout(t *testing.T) {
	ta := newTestApp(t)
	cookie := ta.login(t)

	resp := ta.do(t, fiber.MethodGet, "/api/auth/session", "", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, operatorEmail, body["operator"].(map[string]any)["email"])

	resp = ta.do(t, fiber.MethodPost, "/api/auth/logout", "", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = ta.do(t, fiber.MethodGet, "/api/auth/session", "", cookie)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCreateHorsesAppliesDefaults(t *testing.T) {
	ta := newTestApp(t)
	cookie := ta.login(t)
	orgID := uuid.New()

	var captured []database.CreateHorseParams
	ta.store.On("CreateHorses", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).([]database.CreateHorseParams) }).
		Return([]database.Horse{{ID: uuid.New(), Name: "Comet", Status: "active", IsActive: true}}, nil)

	resp := ta.do(t, fiber.MethodPost, "/api/business-setup/horses",
		`{"organization_id":"`+orgID.String()+`","horses":[{"name":"Comet","breed":"Arabian","gender":"mare","height_hands":""}]}`, cookie)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Successfully added 1 horses", body["message"])
	assert.Equal(t, float64(1), body["data"].(map[string]any)["horses_created"])

	require.Len(t, captured, 1)
	horse := captured[0]
	assert.Equal(t, orgID, horse.OrganizationID.Val)
	assert.False(t, horse.UserID.IsSet)
	assert.Equal(t, "active", horse.Status)
	assert.True(t, horse.IsActive)
	assert.False(t, horse.HeightHands.IsSet)
	assert.NotNil(t, horse.DietaryRestrictions)
	assert.Empty(t, horse.DietaryRestrictions)
	assert.NotNil(t, horse.Photos)
	assert.Equal(t, map[string]any{}, horse.InsuranceDetails)
	ta.store.AssertExpectations(t)
}

func TestCreateHorsesFailures(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		insertErr  error
		wantStatus int
		wantMsg    string
		wantErrors []any
	}{
		{
			name:       "no_owner",
			body:       `{"horses":[{"name":"Comet","breed":"Arabian","gender":"mare"}]}`,
			wantStatus: fiber.StatusBadRequest,
			wantMsg:    "User ID or Organization ID is required",
			wantErrors: []any{"user_id or organization_id must be provided"},
		},
		{
			name:       "empty_list",
			body:       `{"user_id":"` + uuid.NewString() + `","horses":[]}`,
			wantStatus: fiber.StatusBadRequest,
			wantMsg:    "At least one horse is required",
			wantErrors: []any{"horses array cannot be empty"},
		},
		{
			name:       "field_errors",
			body:       `{"user_id":"` + uuid.NewString() + `","horses":[{"name":"Comet","breed":"Arabian","gender":"mare"},{"name":"Dot","gender":"mare"}]}`,
			wantStatus: fiber.StatusBadRequest,
			wantMsg:    "Validation errors found",
			wantErrors: []any{"Horse 2: Breed is required"},
		},
		{
			name:       "insert_failure",
			body:       `{"user_id":"` + uuid.NewString() + `","horses":[{"name":"Comet","breed":"Arabian","gender":"mare"}]}`,
			insertErr:  errors.New("connection reset"),
			wantStatus: fiber.StatusInternalServerError,
			wantMsg:    "Failed to insert horses into database",
			wantErrors: []any{"connection reset"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t)
			cookie := ta.login(t)
			if tt.insertErr != nil {
				ta.store.On("CreateHorses", mock.Anything, mock.Anything).Return([]database.Horse(nil), tt.insertErr)
			}

			resp := ta.do(t, fiber.MethodPost, "/api/business-setup/horses", tt.body, cookie)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body := decodeBody(t, resp)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantMsg, body["message"])
			assert.Equal(t, tt.wantErrors, body["errors"])
			if tt.insertErr == nil {
				ta.store.AssertNotCalled(t, "CreateHorses", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestListHorsesRequiresOwner(t *testing.T) {
	ta := newTestApp(t)
	cookie := ta.login(t)

	resp := ta.do(t, fiber.MethodGet, "/api/business-setup/horses/existing", "", cookie)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Either user_id or organization_id is required", decodeBody(t, resp)["message"])
}

func TestServiceTemplates(t *testing.T) {
	ta := newTestApp(t)
	cookie := ta.login(t)

	resp := ta.do(t, fiber.MethodGet, "/api/business-setup/service-pricing/templates?category=training", "", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	templates := body["templates"].(map[string]any)
	assert.Contains(t, templates, "training")
	assert.Len(t, templates, 1)

	resp = ta.do(t, fiber.MethodGet, "/api/business-setup/service-pricing/templates?category=spa", "", cookie)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSchemaOptions(t *testing.T) {
	ta := newTestApp(t)
	cookie := ta.login(t)

	resp := ta.do(t, fiber.MethodGet, "/api/schema/options", "", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	enums := decodeBody(t, resp)["enums"].(map[string]any)
	assert.Equal(t, []any{"stable", "organization", "trainer", "enterprise"}, enums[validator.EnumOrganizationType])
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantState  string
	}{
		{name: "healthy", wantStatus: fiber.StatusOK, wantState: "healthy"},
		{name: "database_down", pingErr: errors.New("dial tcp: refused"), wantStatus: fiber.StatusInternalServerError, wantState: "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t, func(d *Deps) { d.DB = stubPinger{err: tt.pingErr} })

			resp := ta.do(t, fiber.MethodGet, "/api/health", "")
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantState, decodeBody(t, resp)["status"])
		})
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	ta := newTestApp(t)
	cookie := ta.login(t)

	resp := ta.do(t, fiber.MethodGet, "/api/nope", "", cookie)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, decodeBody(t, resp)["success"])
}

func TestRespondErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "validation", err: validator.Errors{"Name is required"}, wantStatus: fiber.StatusBadRequest},
		{name: "invalid_credentials", err: account.ErrInvalidCredentials, wantStatus: fiber.StatusUnauthorized},
		{name: "email_in_use", err: account.ErrEmailAlreadyInUse, wantStatus: fiber.StatusConflict},
		{name: "weak_password", err: account.ErrWeakPassword, wantStatus: fiber.StatusBadRequest},
		{name: "not_found", err: database.ErrOrganizationNotFound, wantStatus: fiber.StatusNotFound},
		{name: "conflict", err: database.ErrConflict, wantStatus: fiber.StatusConflict},
		{name: "backend", err: errors.New("boom"), wantStatus: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Handler{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return h.respondError(c, tt.err) })

			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, false, decodeBody(t, resp)["success"])
		})
	}
}
