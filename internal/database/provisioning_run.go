package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stabledesk/internal/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ProvisioningRunStatus string

const (
	ProvisioningRunStatusRunning   ProvisioningRunStatus = "running"
	ProvisioningRunStatusCompleted ProvisioningRunStatus = "completed"
	ProvisioningRunStatusFailed    ProvisioningRunStatus = "failed"
)

// ProvisioningRun records the progress of one organization setup.
type ProvisioningRun struct {
	ID               uuid.UUID                `json:"id"`
	Status           ProvisioningRunStatus    `json:"status"`
	OrganizationName string                   `json:"organization_name"`
	OwnerEmail       string                   `json:"owner_email"`
	CompletedSteps   []string                 `json:"completed_steps"`
	FailedStep       util.Optional[string]    `json:"failed_step"`
	Error            util.Optional[string]    `json:"error"`
	OrganizationID   util.Optional[uuid.UUID] `json:"organization_id"`
	OperatorID       util.Optional[uuid.UUID] `json:"operator_id"`
	StartedAt        time.Time                `json:"started_at"`
	FinishedAt       util.Optional[time.Time] `json:"finished_at"`
}

const provisioningRunColumns = `id, status, organization_name, owner_email, completed_steps, failed_step, error, organization_id, operator_id, started_at, finished_at`

func scanProvisioningRun(row pgx.Row) (ProvisioningRun, error) {
	var run ProvisioningRun
	err := row.Scan(&run.ID, &run.Status, &run.OrganizationName, &run.OwnerEmail, &run.CompletedSteps, &run.FailedStep, &run.Error,
		&run.OrganizationID, &run.OperatorID, &run.StartedAt, &run.FinishedAt)
	return run, err
}

type CreateProvisioningRunParams struct {
	OrganizationName string
	OwnerEmail       string
	OperatorID       util.Optional[uuid.UUID]
}

func (db *Database) CreateProvisioningRun(ctx context.Context, params CreateProvisioningRunParams) (ProvisioningRun, error) {
	run := ProvisioningRun{
		ID:               uuid.New(),
		Status:           ProvisioningRunStatusRunning,
		OrganizationName: params.OrganizationName,
		OwnerEmail:       params.OwnerEmail,
		CompletedSteps:   []string{},
		FailedStep:       util.None[string](),
		Error:            util.None[string](),
		OrganizationID:   util.None[uuid.UUID](),
		OperatorID:       params.OperatorID,
		StartedAt:        time.Now().UTC(),
		FinishedAt:       util.None[time.Time](),
	}

	if _, err := db.conn().Exec(ctx, `INSERT INTO tbl_provisioning_run (`+provisioningRunColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		run.ID, run.Status, run.OrganizationName, run.OwnerEmail, run.CompletedSteps, run.FailedStep, run.Error,
		run.OrganizationID, run.OperatorID, run.StartedAt, run.FinishedAt); err != nil {
		return run, fmt.Errorf("database: failed to insert provisioning run: %w", err)
	}
	return run, nil
}

type FinishProvisioningRunParams struct {
	Status         ProvisioningRunStatus
	CompletedSteps []string
	FailedStep     util.Optional[string]
	Error          util.Optional[string]
	OrganizationID util.Optional[uuid.UUID]
}

// FinishProvisioningRun records the outcome of a run that is still running.
func (db *Database) FinishProvisioningRun(ctx context.Context, id uuid.UUID, params FinishProvisioningRunParams) (ProvisioningRun, error) {
	steps := params.CompletedSteps
	if steps == nil {
		steps = []string{}
	}

	run, err := scanProvisioningRun(db.conn().QueryRow(ctx, `UPDATE tbl_provisioning_run
		SET status = $2, completed_steps = $3, failed_step = $4, error = $5, organization_id = $6, finished_at = NOW()
		WHERE id = $1 AND status = 'running' RETURNING `+provisioningRunColumns,
		id, params.Status, steps, params.FailedStep, params.Error, params.OrganizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return run, ErrProvisioningRunNotFound
		}
		return run, fmt.Errorf("database: failed to finish provisioning run (id=%s): %w", id, err)
	}
	return run, nil
}

func (db *Database) GetProvisioningRunByID(ctx context.Context, id uuid.UUID) (ProvisioningRun, error) {
	run, err := scanProvisioningRun(db.conn().QueryRow(ctx, `SELECT `+provisioningRunColumns+` FROM tbl_provisioning_run WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return run, ErrProvisioningRunNotFound
		}
		return run, fmt.Errorf("database: failed to scan provisioning run: %w", err)
	}
	return run, nil
}

type ListProvisioningRunsParams struct {
	Status util.Optional[ProvisioningRunStatus]
	Limit  int
}

func (db *Database) ListProvisioningRuns(ctx context.Context, params ListProvisioningRunsParams) ([]ProvisioningRun, error) {
	b := newWhereBuilder(`SELECT ` + provisioningRunColumns + ` FROM tbl_provisioning_run`)
	if params.Status.IsSet {
		b.and("status = $%d", params.Status.Val)
	}
	b.raw(" ORDER BY started_at DESC")
	b.limit(params.Limit)

	rows, err := db.conn().Query(ctx, b.String(), b.args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list provisioning runs: %w", err)
	}
	defer rows.Close()

	runs := []ProvisioningRun{}
	for rows.Next() {
		run, err := scanProvisioningRun(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan provisioning run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate provisioning runs: %w", err)
	}
	return runs, nil
}

// FailStaleProvisioningRuns marks runs that started before the cutoff and never
// finished as failed.
func (db *Database) FailStaleProvisioningRuns(ctx context.Context, startedBefore time.Time, step, reason string) (int64, error) {
	tag, err := db.conn().Exec(ctx, `UPDATE tbl_provisioning_run SET status = 'failed', failed_step = $2, error = $3, finished_at = NOW()
		WHERE status = 'running' AND started_at < $1`, startedBefore, step, reason)
	if err != nil {
		return 0, fmt.Errorf("database: failed to fail stale provisioning runs: %w", err)
	}
	return tag.RowsAffected(), nil
}
