package business

import (
	"context"
	"fmt"
	"strings"

	"stabledesk/internal/audit"
	"stabledesk/internal/database"
	"stabledesk/internal/form"
	"stabledesk/internal/util"

	"github.com/shopspring/decimal"
)

type ConsumableInput struct {
	Name                 string         `json:"name" label:"Name" validate:"notblank"`
	Type                 string         `json:"type" label:"Type" validate:"notblank,enum=consumable_type"`
	Category             string         `json:"category" label:"Category" validate:"notblank,consumable_category=Type"`
	Brand                string         `json:"brand"`
	Supplier             string         `json:"supplier"`
	DefaultQuantity      form.Number    `json:"default_quantity" label:"Default quantity" validate:"gt=0"`
	DefaultUnitType      string         `json:"default_unit_type" label:"Unit type" validate:"notblank,enum=consumable_unit"`
	CurrentStock         form.Number    `json:"current_stock" label:"Current stock" validate:"gte=0"`
	MinimumStock         form.Number    `json:"minimum_stock" label:"Minimum stock" validate:"gte=0"`
	ReorderPoint         form.Number    `json:"reorder_point" label:"Reorder point" validate:"gte=0"`
	CostPerUnit          form.Number    `json:"cost_per_unit" label:"Cost per unit" validate:"omitempty,gte=0"`
	Barcode              string         `json:"barcode"`
	SKU                  string         `json:"sku"`
	StorageRequirements  string         `json:"storage_requirements"`
	ExpiryDate           string         `json:"expiry_date" label:"Expiry date" validate:"omitempty,datetime=2006-01-02"`
	RequiresPrescription form.Flag      `json:"requires_prescription"`
	WithdrawalPeriodDays form.Number    `json:"withdrawal_period_days" label:"Withdrawal period" validate:"omitempty,gte=0"`
	Specifications       map[string]any `json:"specifications"`
	IsActive             form.Flag      `json:"is_active"`
	IsDefault            form.Flag      `json:"is_default"`
}

func (m *Manager) CreateConsumables(ctx context.Context, owner Owner, consumables []ConsumableInput) ([]database.Consumable, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if len(consumables) == 0 {
		return nil, &RequestError{
			Message: "At least one consumable is required",
			Errors:  []string{"consumables array cannot be empty"},
		}
	}
	if err := validateItems(m.validator, "Consumable", consumables); err != nil {
		return nil, err
	}

	params := make([]database.CreateConsumableParams, 0, len(consumables))
	for _, c := range consumables {
		params = append(params, consumableParams(owner, c))
	}

	created, err := m.store.CreateConsumables(ctx, params)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to insert consumables", "count", len(params), "error", err)
		return nil, &InsertError{Message: "Failed to insert consumables into database", Err: err}
	}

	m.metrics.RecordRowsCreated(ctx, "consumable", len(created))
	m.auditor.Record(ctx, audit.EventTypeConsumablesCreated, map[string]any{
		"count":           len(created),
		"user_id":         owner.UserID,
		"organization_id": owner.OrganizationID,
	})
	return created, nil
}

func consumableParams(owner Owner, c ConsumableInput) database.CreateConsumableParams {
	cost := decimal.Zero
	if d := c.CostPerUnit.Decimal(); d.IsSet {
		cost = d.Val
	}

	return database.CreateConsumableParams{
		UserID:               owner.UserID,
		OrganizationID:       owner.OrganizationID,
		Name:                 strings.TrimSpace(c.Name),
		Type:                 c.Type,
		Category:             c.Category,
		Brand:                util.NonEmpty(c.Brand),
		Supplier:             util.NonEmpty(c.Supplier),
		DefaultQuantity:      c.DefaultQuantity.Or(0),
		DefaultUnitType:      c.DefaultUnitType,
		CurrentStock:         c.CurrentStock.Or(0),
		MinimumStock:         c.MinimumStock.Or(0),
		ReorderPoint:         c.ReorderPoint.Or(0),
		CostPerUnit:          cost,
		Barcode:              util.NonEmpty(c.Barcode),
		SKU:                  util.NonEmpty(c.SKU),
		StorageRequirements:  util.NonEmpty(c.StorageRequirements),
		ExpiryDate:           parseDate(c.ExpiryDate),
		RequiresPrescription: c.RequiresPrescription.Or(false),
		WithdrawalPeriodDays: c.WithdrawalPeriodDays.Int(),
		Specifications:       objectOrEmpty(c.Specifications),
		IsActive:             c.IsActive.Or(true),
		IsDefault:            c.IsDefault.Or(false),
		CreatedBy:            owner.UserID,
	}
}

// ListConsumables follows the same scoping as ListHorses.
func (m *Manager) ListConsumables(ctx context.Context, owner Owner) ([]database.Consumable, error) {
	scope, err := listScope(owner)
	if err != nil {
		return nil, err
	}

	consumables, err := m.store.ListConsumables(ctx, database.ListConsumablesParams{
		UserID:         scope.UserID,
		OrganizationID: scope.OrganizationID,
		IsActive:       util.Some(true),
	})
	if err != nil {
		return nil, fmt.Errorf("business: failed to list consumables: %w", err)
	}
	return consumables, nil
}
