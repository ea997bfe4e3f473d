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

type Consumable struct {
	ID                   uuid.UUID                `json:"id"`
	UserID               util.Optional[uuid.UUID] `json:"user_id"`
	OrganizationID       util.Optional[uuid.UUID] `json:"organization_id"`
	Name                 string                   `json:"name"`
	Type                 string                   `json:"type"`
	Category             string                   `json:"category"`
	Brand                util.Optional[string]    `json:"brand"`
	Supplier             util.Optional[string]    `json:"supplier"`
	DefaultQuantity      float64                  `json:"default_quantity"`
	DefaultUnitType      string                   `json:"default_unit_type"`
	CurrentStock         float64                  `json:"current_stock"`
	MinimumStock         float64                  `json:"minimum_stock"`
	ReorderPoint         float64                  `json:"reorder_point"`
	CostPerUnit          decimal.Decimal          `json:"cost_per_unit"`
	Barcode              util.Optional[string]    `json:"barcode"`
	SKU                  util.Optional[string]    `json:"sku"`
	StorageRequirements  util.Optional[string]    `json:"storage_requirements"`
	ExpiryDate           util.Optional[time.Time] `json:"expiry_date"`
	RequiresPrescription bool                     `json:"requires_prescription"`
	WithdrawalPeriodDays int64                    `json:"withdrawal_period_days"`
	Specifications       map[string]any           `json:"specifications"`
	IsActive             bool                     `json:"is_active"`
	IsDefault            bool                     `json:"is_default"`
	CreatedBy            util.Optional[uuid.UUID] `json:"created_by"`
	CreatedAt            time.Time                `json:"created_at"`
	UpdatedAt            time.Time                `json:"updated_at"`
}

var consumableColumnList = []string{
	"id", "user_id", "organization_id", "name", "type", "category", "brand", "supplier", "default_quantity", "default_unit_type",
	"current_stock", "minimum_stock", "reorder_point", "cost_per_unit", "barcode", "sku", "storage_requirements", "expiry_date",
	"requires_prescription", "withdrawal_period_days", "specifications", "is_active", "is_default", "created_by", "created_at", "updated_at",
}

var consumableColumns = strings.Join(consumableColumnList, ", ")

func (c *Consumable) fields() []any {
	return []any{c.ID, c.UserID, c.OrganizationID, c.Name, c.Type, c.Category, c.Brand, c.Supplier, c.DefaultQuantity, c.DefaultUnitType,
		c.CurrentStock, c.MinimumStock, c.ReorderPoint, c.CostPerUnit, c.Barcode, c.SKU, c.StorageRequirements, c.ExpiryDate,
		c.RequiresPrescription, c.WithdrawalPeriodDays, c.Specifications, c.IsActive, c.IsDefault, c.CreatedBy, c.CreatedAt, c.UpdatedAt}
}

func scanConsumable(row pgx.Row) (Consumable, error) {
	var c Consumable
	err := row.Scan(&c.ID, &c.UserID, &c.OrganizationID, &c.Name, &c.Type, &c.Category, &c.Brand, &c.Supplier, &c.DefaultQuantity, &c.DefaultUnitType,
		&c.CurrentStock, &c.MinimumStock, &c.ReorderPoint, &c.CostPerUnit, &c.Barcode, &c.SKU, &c.StorageRequirements, &c.ExpiryDate,
		&c.RequiresPrescription, &c.WithdrawalPeriodDays, &c.Specifications, &c.IsActive, &c.IsDefault, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

type CreateConsumableParams struct {
	UserID               util.Optional[uuid.UUID]
	OrganizationID       util.Optional[uuid.UUID]
	Name                 string
	Type                 string
	Category             string
	Brand                util.Optional[string]
	Supplier             util.Optional[string]
	DefaultQuantity      float64
	DefaultUnitType      string
	CurrentStock         float64
	MinimumStock         float64
	ReorderPoint         float64
	CostPerUnit          decimal.Decimal
	Barcode              util.Optional[string]
	SKU                  util.Optional[string]
	StorageRequirements  util.Optional[string]
	ExpiryDate           util.Optional[time.Time]
	RequiresPrescription bool
	WithdrawalPeriodDays int64
	Specifications       map[string]any
	IsActive             bool
	IsDefault            bool
	CreatedBy            util.Optional[uuid.UUID]
}

// CreateConsumables inserts every consumable with a single statement.
func (db *Database) CreateConsumables(ctx context.Context, params []CreateConsumableParams) ([]Consumable, error) {
	if len(params) == 0 {
		return []Consumable{}, nil
	}

	now := time.Now().UTC()
	consumables := make([]Consumable, 0, len(params))
	args := make([]any, 0, len(params)*len(consumableColumnList))
	for _, p := range params {
		c := Consumable{
			ID:                   uuid.New(),
			UserID:               p.UserID,
			OrganizationID:       p.OrganizationID,
			Name:                 p.Name,
			Type:                 p.Type,
			Category:             p.Category,
			Brand:                p.Brand,
			Supplier:             p.Supplier,
			DefaultQuantity:      p.DefaultQuantity,
			DefaultUnitType:      p.DefaultUnitType,
			CurrentStock:         p.CurrentStock,
			MinimumStock:         p.MinimumStock,
			ReorderPoint:         p.ReorderPoint,
			CostPerUnit:          p.CostPerUnit,
			Barcode:              p.Barcode,
			SKU:                  p.SKU,
			StorageRequirements:  p.StorageRequirements,
			ExpiryDate:           p.ExpiryDate,
			RequiresPrescription: p.RequiresPrescription,
			WithdrawalPeriodDays: p.WithdrawalPeriodDays,
			Specifications:       p.Specifications,
			IsActive:             p.IsActive,
			IsDefault:            p.IsDefault,
			CreatedBy:            p.CreatedBy,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if c.Specifications == nil {
			c.Specifications = map[string]any{}
		}
		consumables = append(consumables, c)
		args = append(args, c.fields()...)
	}

	query := `INSERT INTO tbl_consumable (` + consumableColumns + `) VALUES ` + valuesPlaceholders(len(consumables), len(consumableColumnList))
	if _, err := db.conn().Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("database: failed to insert %d consumables: %w", len(consumables), classify(err))
	}
	return consumables, nil
}

type ListConsumablesParams struct {
	UserID         util.Optional[uuid.UUID]
	OrganizationID util.Optional[uuid.UUID]
	Type           util.Optional[string]
	IsActive       util.Optional[bool]
}

// ListConsumables lists consumables newest first.
func (db *Database) ListConsumables(ctx context.Context, params ListConsumablesParams) ([]Consumable, error) {
	b := newWhereBuilder(`SELECT ` + consumableColumns + ` FROM tbl_consumable`)
	if params.UserID.IsSet {
		b.and("user_id = $%d", params.UserID.Val)
	}
	if params.OrganizationID.IsSet {
		b.and("organization_id = $%d", params.OrganizationID.Val)
	}
	if params.Type.IsSet {
		b.and("type = $%d", params.Type.Val)
	}
	if params.IsActive.IsSet {
		b.and("is_active = $%d", params.IsActive.Val)
	}
	b.raw(" ORDER BY created_at DESC")

	rows, err := db.conn().Query(ctx, b.String(), b.args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list consumables: %w", err)
	}
	defer rows.Close()

	consumables := []Consumable{}
	for rows.Next() {
		c, err := scanConsumable(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan consumable: %w", err)
		}
		consumables = append(consumables, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate consumables: %w", err)
	}
	return consumables, nil
}
