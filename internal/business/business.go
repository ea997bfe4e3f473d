// Package business records the day to day setup of a stable: its horses,
// its consumables and the services it bills for.
package business

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"stabledesk/internal/audit"
	"stabledesk/internal/database"
	"stabledesk/internal/telemetry"
	"stabledesk/internal/util"
	"stabledesk/internal/validator"

	"github.com/google/uuid"
)

type Store interface {
	CreateHorses(ctx context.Context, params []database.CreateHorseParams) ([]database.Horse, error)
	GetHorseByID(ctx context.Context, id uuid.UUID) (database.Horse, error)
	ListHorses(ctx context.Context, params database.ListHorsesParams) ([]database.Horse, error)
	AppendHorsePhoto(ctx context.Context, id uuid.UUID, url string) (database.Horse, error)

	CreateConsumables(ctx context.Context, params []database.CreateConsumableParams) ([]database.Consumable, error)
	ListConsumables(ctx context.Context, params database.ListConsumablesParams) ([]database.Consumable, error)

	CreateTransactionTypes(ctx context.Context, params []database.CreateTransactionTypeParams) ([]database.TransactionType, error)
	ListTransactionTypes(ctx context.Context, params database.ListTransactionTypesParams) ([]database.TransactionType, error)
}

// PhotoStore is the subset of storage.Storage used for horse photos.
type PhotoStore interface {
	Store(ctx context.Context, prefix, filename string, content io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// RequestError rejects a request before anything is written. Message is the
// headline and Errors the individual problems.
type RequestError struct {
	Message string
	Errors  []string
}

func (e *RequestError) Error() string {
	if len(e.Errors) == 0 {
		return "business: " + e.Message
	}
	return "business: " + e.Message + ": " + strings.Join(e.Errors, "; ")
}

// InsertError reports a batch insert that failed as a whole.
type InsertError struct {
	Message string
	Err     error
}

func (e *InsertError) Error() string {
	return "business: " + e.Message + ": " + e.Err.Error()
}

func (e *InsertError) Unwrap() error {
	return e.Err
}

type Manager struct {
	logger    *slog.Logger
	store     Store
	validator *validator.Validator
	photos    PhotoStore
	auditor   *audit.Auditor
	metrics   *telemetry.Metrics
	now       func() time.Time
}

func NewManager(logger *slog.Logger, store Store, v *validator.Validator, photos PhotoStore, auditor *audit.Auditor, metrics *telemetry.Metrics) *Manager {
	return &Manager{
		logger:    logger,
		store:     store,
		validator: v,
		photos:    photos,
		auditor:   auditor,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Owner is who a setup row belongs to. At least one side is set.
type Owner struct {
	UserID         util.Optional[uuid.UUID]
	OrganizationID util.Optional[uuid.UUID]
}

func (o Owner) IsZero() bool {
	return !o.UserID.IsSet && !o.OrganizationID.IsSet
}

// ParseOwner reads the optional user and organization ids of a request.
func ParseOwner(userID, organizationID string) (Owner, error) {
	var owner Owner
	var errs []string
	if s := strings.TrimSpace(userID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			errs = append(errs, "user_id must be a valid id")
		} else {
			owner.UserID = util.Some(id)
		}
	}
	if s := strings.TrimSpace(organizationID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			errs = append(errs, "organization_id must be a valid id")
		} else {
			owner.OrganizationID = util.Some(id)
		}
	}
	if len(errs) > 0 {
		return Owner{}, &RequestError{Message: "Validation errors found", Errors: errs}
	}
	return owner, nil
}

// listScope applies the listing precedence: the organization wins when both
// ids are given.
func listScope(owner Owner) (Owner, error) {
	if owner.IsZero() {
		return Owner{}, &RequestError{Message: "Either user_id or organization_id is required"}
	}
	if owner.OrganizationID.IsSet {
		return Owner{OrganizationID: owner.OrganizationID}, nil
	}
	return Owner{UserID: owner.UserID}, nil
}

func requireOwner(owner Owner) error {
	if owner.IsZero() {
		return &RequestError{
			Message: "User ID or Organization ID is required",
			Errors:  []string{"user_id or organization_id must be provided"},
		}
	}
	return nil
}

// validateItems runs the shared rules over a list payload and turns field
// failures into a RequestError.
func validateItems[T any](v *validator.Validator, label string, items []T) error {
	err := validator.Items(v, label, items)
	if err == nil {
		return nil
	}
	var errs validator.Errors
	if errors.As(err, &errs) {
		return &RequestError{Message: "Validation errors found", Errors: errs}
	}
	return fmt.Errorf("business: failed to validate %s: %w", strings.ToLower(label), err)
}

func parseDate(s string) util.Optional[time.Time] {
	s = strings.TrimSpace(s)
	if s == "" {
		return util.None[time.Time]()
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return util.None[time.Time]()
	}
	return util.Some(t)
}

func trimmed(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func objectOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
