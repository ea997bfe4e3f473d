package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"stabledesk/internal/audit"
	"stabledesk/internal/database"
	"stabledesk/internal/util"
	"stabledesk/internal/validator"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type OperatorStore interface {
	CreateOperator(ctx context.Context, params database.CreateOperatorParams) (database.Operator, error)
	GetOperator(ctx context.Context, params database.GetOperatorParams) (database.Operator, error)
	ListOperators(ctx context.Context) ([]database.Operator, error)
	TouchOperatorLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Authenticator signs operators in against their own bcrypt credentials.
type Authenticator struct {
	logger    *slog.Logger
	store     OperatorStore
	validator *validator.Validator
	auditor   *audit.Auditor
	now       func() time.Time
}

func NewAuthenticator(logger *slog.Logger, store OperatorStore, v *validator.Validator, auditor *audit.Auditor) *Authenticator {
	return &Authenticator{logger: logger, store: store, validator: v, auditor: auditor, now: time.Now}
}

type LoginParam struct {
	Email    string
	Password string
}

// Login returns ErrInvalidCredentials for an unknown email, an inactive
// operator and a wrong password alike.
func (a *Authenticator) Login(ctx context.Context, param LoginParam) (database.Operator, error) {
	operator, err := a.store.GetOperator(ctx, database.GetOperatorParams{Email: util.Some(NormalizeEmail(param.Email))})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// Burn comparable time so unknown emails are not distinguishable.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(param.Password))
			return database.Operator{}, ErrInvalidCredentials
		}
		return database.Operator{}, fmt.Errorf("account: failed to get operator: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(param.Password)); err != nil {
		return database.Operator{}, ErrInvalidCredentials
	}
	if !operator.IsActive {
		return database.Operator{}, ErrInvalidCredentials
	}

	now := a.now().UTC()
	if err := a.store.TouchOperatorLogin(ctx, operator.ID, now); err != nil {
		a.logger.WarnContext(ctx, "Failed to record operator login", "operator_id", operator.ID, "error", err)
	} else {
		operator.LastLoginAt = util.Some(now)
	}

	a.auditor.Record(audit.WithOperator(ctx, operator.ID), audit.EventTypeOperatorLogin, map[string]any{
		"email": operator.Email,
	})

	return operator, nil
}

func (a *Authenticator) Logout(ctx context.Context, operatorID uuid.UUID) {
	a.auditor.Record(audit.WithOperator(ctx, operatorID), audit.EventTypeOperatorLogout, nil)
}

func (a *Authenticator) Operator(ctx context.Context, id uuid.UUID) (database.Operator, error) {
	operator, err := a.store.GetOperator(ctx, database.GetOperatorParams{ID: util.Some(id)})
	if err != nil {
		return database.Operator{}, fmt.Errorf("account: failed to get operator: %w", err)
	}
	return operator, nil
}

type CreateOperatorParam struct {
	Email    string
	Name     string
	Password string
}

func (a *Authenticator) CreateOperator(ctx context.Context, param CreateOperatorParam) (database.Operator, error) {
	if !a.validator.Password(param.Password) {
		return database.Operator{}, ErrWeakPassword
	}

	hash, err := HashPassword(param.Password)
	if err != nil {
		return database.Operator{}, err
	}

	operator, err := a.store.CreateOperator(ctx, database.CreateOperatorParams{
		Email:        NormalizeEmail(param.Email),
		Name:         strings.TrimSpace(param.Name),
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			return database.Operator{}, ErrEmailAlreadyInUse
		}
		return database.Operator{}, fmt.Errorf("account: failed to create operator: %w", err)
	}

	a.auditor.Record(ctx, audit.EventTypeOperatorCreated, map[string]any{
		"operator_id": operator.ID,
		"email":       operator.Email,
	})
	return operator, nil
}

func (a *Authenticator) ListOperators(ctx context.Context) ([]database.Operator, error) {
	operators, err := a.store.ListOperators(ctx)
	if err != nil {
		return nil, fmt.Errorf("account: failed to list operators: %w", err)
	}
	return operators, nil
}

// EnsureBootstrapOperator creates the configured operator unless one with
// that email already exists. It reports whether an operator was created.
func (a *Authenticator) EnsureBootstrapOperator(ctx context.Context, param CreateOperatorParam) (bool, error) {
	if param.Email == "" || param.Password == "" {
		return false, nil
	}

	_, err := a.store.GetOperator(ctx, database.GetOperatorParams{Email: util.Some(NormalizeEmail(param.Email))})
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return false, fmt.Errorf("account: failed to look up bootstrap operator: %w", err)
	}

	operator, err := a.CreateOperator(ctx, param)
	if err != nil {
		return false, fmt.Errorf("account: failed to create bootstrap operator: %w", err)
	}
	a.logger.InfoContext(ctx, "Bootstrap operator created", "operator_id", operator.ID, "email", operator.Email)
	return true, nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("stabledesk-dummy-password"), bcrypt.DefaultCost)
