package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"stabledesk/internal/database"
	"stabledesk/internal/util"
	"stabledesk/internal/validator"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailAlreadyInUse  = errors.New("email already in use")
	ErrWeakPassword       = errors.New("password must be 8 to 72 characters and contain upper and lower case letters, a digit and a special character")
)

// Store is the persistence the account manager needs. *database.Database
// satisfies it, both pooled and inside a transaction.
type Store interface {
	CreateAccount(ctx context.Context, params database.CreateAccountParams) (database.Account, error)
	GetAccount(ctx context.Context, params database.GetAccountParams) (database.Account, error)
	ListAccounts(ctx context.Context, params database.ListAccountsParams) ([]database.Account, error)
}

type Manager struct {
	logger    *slog.Logger
	store     Store
	validator *validator.Validator
}

func NewManager(logger *slog.Logger, store Store, v *validator.Validator) *Manager {
	return &Manager{logger: logger, store: store, validator: v}
}

// WithStore returns a copy of the manager bound to store, typically a
// transaction-scoped database.
func (m *Manager) WithStore(store Store) *Manager {
	clone := *m
	clone.store = store
	return &clone
}

type CreateParams struct {
	Email          string
	Password       string
	FullName       string
	Phone          util.Optional[string]
	EmailConfirmed bool
	Metadata       map[string]any
}

func (m *Manager) Create(ctx context.Context, params CreateParams) (database.Account, error) {
	if !m.validator.Password(params.Password) {
		return database.Account{}, ErrWeakPassword
	}

	hash, err := HashPassword(params.Password)
	if err != nil {
		return database.Account{}, err
	}

	account, err := m.store.CreateAccount(ctx, database.CreateAccountParams{
		Email:          NormalizeEmail(params.Email),
		PasswordHash:   hash,
		FullName:       strings.TrimSpace(params.FullName),
		Phone:          params.Phone,
		EmailConfirmed: params.EmailConfirmed,
		Metadata:       params.Metadata,
	})
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			return database.Account{}, ErrEmailAlreadyInUse
		}
		return database.Account{}, fmt.Errorf("account: failed to create account: %w", err)
	}

	m.logger.InfoContext(ctx, "Account created", "account_id", account.ID)
	return account, nil
}

func (m *Manager) Get(ctx context.Context, id uuid.UUID) (database.Account, error) {
	account, err := m.store.GetAccount(ctx, database.GetAccountParams{ID: util.Some(id)})
	if err != nil {
		return database.Account{}, fmt.Errorf("account: failed to get account: %w", err)
	}
	return account, nil
}

func (m *Manager) List(ctx context.Context, limit int) ([]database.Account, error) {
	accounts, err := m.store.ListAccounts(ctx, database.ListAccountsParams{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("account: failed to list accounts: %w", err)
	}
	return accounts, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("account: failed to hash password: %w", err)
	}
	return string(hash), nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
