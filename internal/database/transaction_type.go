package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stabledesk/internal/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionType is a billable service offered by one organization.
type TransactionType struct {
	ID               uuid.UUID                      `json:"id"`
	OrganizationID   uuid.UUID                      `json:"organization_id"`
	Name             string                         `json:"name"`
	Description      util.Optional[string]          `json:"description"`
	Category         string                         `json:"category"`
	DefaultRate      decimal.Decimal                `json:"default_rate"`
	UnitType         string                         `json:"unit_type"`
	BillingFrequency string                         `json:"billing_frequency"`
	PriceRangeMin    util.Optional[decimal.Decimal] `json:"price_range_min"`
	PriceRangeMax    util.Optional[decimal.Decimal] `json:"price_range_max"`
	IsActive         bool                           `json:"is_active"`
	RequiresApproval bool                           `json:"requires_approval"`
	IsRecurring      bool                           `json:"is_recurring"`
	BillingCycleDays int64                          `json:"billing_cycle_days"`
	MaxTasksPerCycle int64                          `json:"max_tasks_per_cycle"`
	ServiceTier      string                         `json:"service_tier"`
	CreatedBy        util.Optional[uuid.UUID]       `json:"created_by"`
	CreatedAt        time.Time                      `json:"created_at"`
	UpdatedAt        time.Time                      `json:"updated_at"`
}

var transactionTypeColumnList = []string{
	"id", "organization_id", "name", "description", "category", "default_rate", "unit_type", "billing_frequency", "price_range_min",
	"price_range_max", "is_active", "requires_approval", "is_recurring", "billing_cycle_days", "max_tasks_per_cycle", "service_tier",
	"created_by", "created_at", "updated_at",
}

var transactionTypeColumns = strings.Join(transactionTypeColumnList, ", ")

func (t *TransactionType) fields() []any {
	return []any{t.ID, t.OrganizationID, t.Name, t.Description, t.Category, t.DefaultRate, t.UnitType, t.BillingFrequency, t.PriceRangeMin,
		t.PriceRangeMax, t.IsActive, t.RequiresApproval, t.IsRecurring, t.BillingCycleDays, t.MaxTasksPerCycle, t.ServiceTier,
		t.CreatedBy, t.CreatedAt, t.UpdatedAt}
}

func scanTransactionType(row pgx.Row) (TransactionType, error) {
	var t TransactionType
	err := row.Scan(&t.ID, &t.OrganizationID, &t.Name, &t.Description, &t.Category, &t.DefaultRate, &t.UnitType, &t.BillingFrequency, &t.PriceRangeMin,
		&t.PriceRangeMax, &t.IsActive, &t.RequiresApproval, &t.IsRecurring, &t.BillingCycleDays, &t.MaxTasksPerCycle, &t.ServiceTier,
		&t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

type CreateTransactionTypeParams struct {
	OrganizationID   uuid.UUID
	Name             string
	Description      util.Optional[string]
	Category         string
	DefaultRate      decimal.Decimal
	UnitType         string
	BillingFrequency string
	PriceRangeMin    util.Optional[decimal.Decimal]
	PriceRangeMax    util.Optional[decimal.Decimal]
	IsActive         bool
	RequiresApproval bool
	IsRecurring      bool
	BillingCycleDays int64
	MaxTasksPerCycle int64
	ServiceTier      string
	CreatedBy        util.Optional[uuid.UUID]
}

// CreateTransactionTypes inserts every transaction type with a single statement.
func (db *Database) CreateTransactionTypes(ctx context.Context, params []CreateTransactionTypeParams) ([]TransactionType, error) {
	if len(params) == 0 {
		return []TransactionType{}, nil
	}

	now := time.Now().UTC()
	types := make([]TransactionType, 0, len(params))
	args := make([]any, 0, len(params)*len(transactionTypeColumnList))
	for _, p := range params {
		t := TransactionType{
			ID:               uuid.New(),
			OrganizationID:   p.OrganizationID,
			Name:             p.Name,
			Description:      p.Description,
			Category:         p.Category,
			DefaultRate:      p.DefaultRate,
			UnitType:         p.UnitType,
			BillingFrequency: p.BillingFrequency,
			PriceRangeMin:    p.PriceRangeMin,
			PriceRangeMax:    p.PriceRangeMax,
			IsActive:         p.IsActive,
			RequiresApproval: p.RequiresApproval,
			IsRecurring:      p.IsRecurring,
			BillingCycleDays: p.BillingCycleDays,
			MaxTasksPerCycle: p.MaxTasksPerCycle,
			ServiceTier:      p.ServiceTier,
			CreatedBy:        p.CreatedBy,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		types = append(types, t)
		args = append(args, t.fields()...)
	}

	query := `INSERT INTO tbl_transaction_type (` + transactionTypeColumns + `) VALUES ` + valuesPlaceholders(len(types), len(transactionTypeColumnList))
	if _, err := db.conn().Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("database: failed to insert %d transaction types: %w", len(types), classify(err))
	}
	return types, nil
}

type ListTransactionTypesParams struct {
	OrganizationID util.Optional[uuid.UUID]
	Category       util.Optional[string]
	IsActive       util.Optional[bool]
}

// ListTransactionTypes lists transaction types newest first.
func (db *Database) ListTransactionTypes(ctx context.Context, params ListTransactionTypesParams) ([]TransactionType, error) {
	b := newWhereBuilder(`SELECT ` + transactionTypeColumns + ` FROM tbl_transaction_type`)
	if params.OrganizationID.IsSet {
		b.and("organization_id = $%d", params.OrganizationID.Val)
	}
	if params.Category.IsSet {
		b.and("category = $%d", params.Category.Val)
	}
	if params.IsActive.IsSet {
		b.and("is_active = $%d", params.IsActive.Val)
	}
	b.raw(" ORDER BY created_at DESC")

	rows, err := db.conn().Query(ctx, b.String(), b.args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list transaction types: %w", err)
	}
	defer rows.Close()

	types := []TransactionType{}
	for rows.Next() {
		t, err := scanTransactionType(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan transaction type: %w", err)
		}
		types = append(types, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate transaction types: %w", err)
	}
	return types, nil
}
