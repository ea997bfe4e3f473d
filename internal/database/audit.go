package database

import (
	"context"
	"fmt"
	"time"

	"stabledesk/internal/util"

	"github.com/google/uuid"
)

type AuditLogEvent struct {
	ID         uuid.UUID                `json:"id"`
	OperatorID util.Optional[uuid.UUID] `json:"operator_id"`
	Type       string                   `json:"type"`
	Data       map[string]any           `json:"data"`
	CreatedAt  time.Time                `json:"created_at"`
}

type CreateAuditLogEventParams struct {
	OperatorID util.Optional[uuid.UUID]
	Type       string
	Data       map[string]any
}

func (db *Database) CreateAuditLogEvent(ctx context.Context, params CreateAuditLogEventParams) (AuditLogEvent, error) {
	event := AuditLogEvent{
		ID:         uuid.New(),
		OperatorID: params.OperatorID,
		Type:       params.Type,
		Data:       params.Data,
		CreatedAt:  time.Now().UTC(),
	}
	if event.Data == nil {
		event.Data = map[string]any{}
	}

	if _, err := db.conn().Exec(ctx, `INSERT INTO tbl_audit_log (id, operator_id, type, data, created_at) VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.OperatorID, event.Type, event.Data, event.CreatedAt); err != nil {
		return event, fmt.Errorf("database: failed to insert audit log event (type=%s): %w", event.Type, err)
	}
	return event, nil
}

type ListAuditLogEventsParams struct {
	Type  util.Optional[string]
	Limit int
}

func (db *Database) ListAuditLogEvents(ctx context.Context, params ListAuditLogEventsParams) ([]AuditLogEvent, error) {
	b := newWhereBuilder(`SELECT id, operator_id, type, data, created_at FROM tbl_audit_log`)
	if params.Type.IsSet {
		b.and("type = $%d", params.Type.Val)
	}
	b.raw(" ORDER BY created_at DESC")
	b.limit(params.Limit)

	rows, err := db.conn().Query(ctx, b.String(), b.args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list audit log events: %w", err)
	}
	defer rows.Close()

	events := []AuditLogEvent{}
	for rows.Next() {
		var e AuditLogEvent
		if err := rows.Scan(&e.ID, &e.OperatorID, &e.Type, &e.Data, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan audit log event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate audit log events: %w", err)
	}
	return events, nil
}
