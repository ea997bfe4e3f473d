package audit

import (
	"context"
	"fmt"
	"log/slog"

	"stabledesk/internal/database"
	"stabledesk/internal/util"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeOperatorLogin           EventType = "operator.login"
	EventTypeOperatorLogout          EventType = "operator.logout"
	EventTypeOperatorCreated         EventType = "operator.created"
	EventTypeAccountCreated          EventType = "account.created"
	EventTypeOrganizationCreated     EventType = "organization.created"
	EventTypeOrganizationUpdated     EventType = "organization.updated"
	EventTypeOrganizationProvisioned EventType = "organization.provisioned"
	EventTypeRoleCreated             EventType = "role.created"
	EventTypeRoleUpdated             EventType = "role.updated"
	EventTypeMemberCreated           EventType = "member.created"
	EventTypeMemberUpdated           EventType = "member.updated"
	EventTypeProfileCreated          EventType = "profile.created"
	EventTypeHorsesCreated           EventType = "horses.created"
	EventTypeHorsePhotoAdded         EventType = "horse.photo_added"
	EventTypeConsumablesCreated      EventType = "consumables.created"
	EventTypeTransactionTypesCreated EventType = "transaction_types.created"
)

type Store interface {
	CreateAuditLogEvent(ctx context.Context, params database.CreateAuditLogEventParams) (database.AuditLogEvent, error)
	ListAuditLogEvents(ctx context.Context, params database.ListAuditLogEventsParams) ([]database.AuditLogEvent, error)
}

type Auditor struct {
	logger *slog.Logger
	store  Store
}

func NewAuditor(logger *slog.Logger, store Store) *Auditor {
	return &Auditor{logger: logger, store: store}
}

type LogEventParam struct {
	// OperatorID overrides the operator carried by ctx.
	OperatorID util.Optional[uuid.UUID]
	Type       EventType
	Data       map[string]any
}

func (a *Auditor) LogEvent(ctx context.Context, params LogEventParam) error {
	operatorID := params.OperatorID
	if !operatorID.IsSet {
		operatorID = OperatorFromContext(ctx)
	}

	if _, err := a.store.CreateAuditLogEvent(ctx, database.CreateAuditLogEventParams{
		OperatorID: operatorID,
		Type:       string(params.Type),
		Data:       params.Data,
	}); err != nil {
		return fmt.Errorf("audit: failed to create audit log event: %w", err)
	}
	return nil
}

// Record logs the event and only warns on failure. It is used after the
// audited write has already committed.
func (a *Auditor) Record(ctx context.Context, eventType EventType, data map[string]any) {
	if a == nil {
		return
	}
	if err := a.LogEvent(ctx, LogEventParam{Type: eventType, Data: data}); err != nil {
		a.logger.WarnContext(ctx, "Failed to record audit event", "type", eventType, "error", err)
	}
}

type ListParams struct {
	Type  string
	Limit int
}

func (a *Auditor) List(ctx context.Context, params ListParams) ([]database.AuditLogEvent, error) {
	limit := params.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	events, err := a.store.ListAuditLogEvents(ctx, database.ListAuditLogEventsParams{
		Type:  util.NonEmpty(params.Type),
		Limit: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("audit: failed to list audit log events: %w", err)
	}
	return events, nil
}

type contextKey struct{}

func WithOperator(ctx context.Context, operatorID uuid.UUID) context.Context {
	return context.WithValue(ctx, contextKey{}, operatorID)
}

func OperatorFromContext(ctx context.Context) util.Optional[uuid.UUID] {
	if id, ok := ctx.Value(contextKey{}).(uuid.UUID); ok {
		return util.Some(id)
	}
	return util.None[uuid.UUID]()
}
