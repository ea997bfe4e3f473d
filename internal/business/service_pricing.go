package business

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"stabledesk/internal/audit"
	"stabledesk/internal/database"
	"stabledesk/internal/form"
	"stabledesk/internal/util"
	"stabledesk/internal/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultServiceTier = "standard"

type TransactionTypeInput struct {
	Name             string      `json:"name" label:"Name" validate:"notblank"`
	Description      string      `json:"description"`
	Category         string      `json:"category" label:"Category" validate:"notblank,enum=service_category"`
	DefaultRate      form.Number `json:"default_rate" label:"Default rate" validate:"gte=0"`
	UnitType         string      `json:"unit_type" label:"Unit type" validate:"notblank,enum=service_unit_type"`
	BillingFrequency string      `json:"billing_frequency" label:"Billing frequency" validate:"notblank,enum=billing_frequency"`
	PriceRangeMin    form.Number `json:"price_range_min" label:"Price range min" validate:"omitempty,gte=0,price_range=PriceRangeMax"`
	PriceRangeMax    form.Number `json:"price_range_max" label:"Price range max" validate:"omitempty,gte=0"`
	IsActive         form.Flag   `json:"is_active"`
	RequiresApproval form.Flag   `json:"requires_approval"`
	IsRecurring      form.Flag   `json:"is_recurring"`
	BillingCycleDays form.Number `json:"billing_cycle_days" label:"Billing cycle days" validate:"omitempty,gte=0"`
	MaxTasksPerCycle form.Number `json:"max_tasks_per_cycle" label:"Max tasks per cycle" validate:"omitempty,gte=0"`
	ServiceTier      string      `json:"service_tier" label:"Service tier" validate:"omitempty,enum=service_tier"`
}

// CreateTransactionTypes records the services an organization bills for.
// createdBy is the user the pricing was set up for, when known.
func (m *Manager) CreateTransactionTypes(ctx context.Context, organizationID util.Optional[uuid.UUID], createdBy util.Optional[uuid.UUID], types []TransactionTypeInput) ([]database.TransactionType, error) {
	if !organizationID.IsSet {
		return nil, &RequestError{
			Message: "Organization ID is required",
			Errors:  []string{"organization_id must be provided"},
		}
	}
	if len(types) == 0 {
		return nil, &RequestError{
			Message: "At least one transaction type is required",
			Errors:  []string{"transaction_types array cannot be empty"},
		}
	}
	if err := validateItems(m.validator, "Transaction type", types); err != nil {
		return nil, err
	}

	params := make([]database.CreateTransactionTypeParams, 0, len(types))
	for _, t := range types {
		params = append(params, transactionTypeParams(organizationID.Val, createdBy, t))
	}

	created, err := m.store.CreateTransactionTypes(ctx, params)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to insert transaction types", "count", len(params), "error", err)
		return nil, &InsertError{Message: "Failed to insert transaction types into database", Err: err}
	}

	m.metrics.RecordRowsCreated(ctx, "transaction_type", len(created))
	m.auditor.Record(ctx, audit.EventTypeTransactionTypesCreated, map[string]any{
		"count":           len(created),
		"organization_id": organizationID.Val,
	})
	return created, nil
}

func transactionTypeParams(organizationID uuid.UUID, createdBy util.Optional[uuid.UUID], t TransactionTypeInput) database.CreateTransactionTypeParams {
	rate := decimal.Zero
	if d := t.DefaultRate.Decimal(); d.IsSet {
		rate = d.Val
	}
	tier := strings.TrimSpace(t.ServiceTier)
	if tier == "" {
		tier = defaultServiceTier
	}

	return database.CreateTransactionTypeParams{
		OrganizationID:   organizationID,
		Name:             strings.TrimSpace(t.Name),
		Description:      util.NonEmpty(t.Description),
		Category:         t.Category,
		DefaultRate:      rate,
		UnitType:         t.UnitType,
		BillingFrequency: t.BillingFrequency,
		PriceRangeMin:    positiveDecimal(t.PriceRangeMin),
		PriceRangeMax:    positiveDecimal(t.PriceRangeMax),
		IsActive:         t.IsActive.Or(true),
		RequiresApproval: t.RequiresApproval.Or(false),
		IsRecurring:      t.IsRecurring.Or(false),
		BillingCycleDays: t.BillingCycleDays.Int(),
		MaxTasksPerCycle: t.MaxTasksPerCycle.Int(),
		ServiceTier:      tier,
		CreatedBy:        createdBy,
	}
}

// positiveDecimal leaves a zero bound unset, since a zero bound carries no
// pricing information.
func positiveDecimal(n form.Number) util.Optional[decimal.Decimal] {
	d := n.Decimal()
	if !d.IsSet || d.Val.IsZero() {
		return util.None[decimal.Decimal]()
	}
	return d
}

// ListTransactionTypes lists an organization's services newest first.
func (m *Manager) ListTransactionTypes(ctx context.Context, organizationID util.Optional[uuid.UUID]) ([]database.TransactionType, error) {
	if !organizationID.IsSet {
		return nil, &RequestError{Message: "Organization ID is required"}
	}

	types, err := m.store.ListTransactionTypes(ctx, database.ListTransactionTypesParams{
		OrganizationID: organizationID,
	})
	if err != nil {
		return nil, fmt.Errorf("business: failed to list transaction types: %w", err)
	}
	return types, nil
}

// ServiceTemplate is a suggested service an organization can adopt as is.
type ServiceTemplate struct {
	Name             string          `json:"name"`
	Category         string          `json:"category"`
	DefaultRate      decimal.Decimal `json:"default_rate"`
	UnitType         string          `json:"unit_type"`
	BillingFrequency string          `json:"billing_frequency"`
	ServiceTier      string          `json:"service_tier"`
	IsRecurring      bool            `json:"is_recurring"`
}

func tmpl(name string, rate int64, unit, frequency, tier string) ServiceTemplate {
	return ServiceTemplate{Name: name, DefaultRate: decimal.NewFromInt(rate), UnitType: unit, BillingFrequency: frequency, ServiceTier: tier}
}

func recurring(t ServiceTemplate) ServiceTemplate {
	t.IsRecurring = true
	return t
}

var serviceTemplates = map[string][]ServiceTemplate{
	"training": {
		tmpl("Basic Training Session", 75, "hour", "session", "standard"),
		tmpl("Advanced Training Session", 100, "hour", "session", "premium"),
		tmpl("Group Training Session", 50, "hour", "session", "basic"),
		tmpl("Competition Preparation", 125, "hour", "session", "premium"),
	},
	"boarding": {
		recurring(tmpl("Full Board", 600, "month", "monthly", "standard")),
		recurring(tmpl("Pasture Board", 300, "month", "monthly", "basic")),
		recurring(tmpl("Training Board", 1200, "month", "monthly", "premium")),
	},
	"grooming": {
		tmpl("Basic Grooming", 35, "session", "session", "basic"),
		tmpl("Full Grooming Service", 60, "session", "session", "standard"),
		tmpl("Show Preparation", 100, "session", "session", "premium"),
	},
	"veterinary": {
		tmpl("Routine Check-up", 150, "event", "per_event", "standard"),
		tmpl("Emergency Call", 300, "event", "per_event", "standard"),
		tmpl("Vaccination", 75, "event", "per_event", "basic"),
	},
	"farrier": {
		tmpl("Trim Only", 45, "event", "per_event", "basic"),
		tmpl("Shoe (4 shoes)", 120, "event", "per_event", "standard"),
		tmpl("Corrective Shoeing", 180, "event", "per_event", "premium"),
	},
	"feed": {
		tmpl("Hay (per bale)", 12, "fixed", "per_event", "basic"),
		tmpl("Grain (per bag)", 25, "fixed", "per_event", "basic"),
		tmpl("Supplements", 50, "month", "monthly", "standard"),
	},
	"medicine": {
		tmpl("Deworming", 25, "event", "per_event", "basic"),
		tmpl("Joint Injection", 200, "event", "per_event", "premium"),
		tmpl("Medication Administration", 15, "task", "per_task", "basic"),
	},
	"transportation": {
		tmpl("Local Transport", 2, "fixed", "per_event", "standard"),
		tmpl("Long Distance Transport", 5, "fixed", "per_event", "standard"),
		tmpl("Emergency Transport", 10, "fixed", "per_event", "premium"),
	},
	"other": {
		tmpl("General Service", 50, "hour", "session", "standard"),
	},
}

// ServiceTemplates returns the built-in templates keyed by category. An empty
// category returns every category.
func ServiceTemplates(category string) (map[string][]ServiceTemplate, error) {
	category = strings.TrimSpace(category)
	if category != "" && !validator.InEnum(validator.EnumServiceCategory, category) {
		return nil, &RequestError{
			Message: "Validation errors found",
			Errors:  []string{"Category must be one of: " + strings.Join(validator.Enum(validator.EnumServiceCategory), ", ")},
		}
	}

	out := make(map[string][]ServiceTemplate)
	for c, templates := range serviceTemplates {
		if category != "" && c != category {
			continue
		}
		list := make([]ServiceTemplate, len(templates))
		for i, t := range templates {
			t.Category = c
			list[i] = t
		}
		out[c] = list
	}
	return out, nil
}

// ServiceCategories lists the template categories in display order.
func ServiceCategories() []string {
	return slices.DeleteFunc(validator.Enum(validator.EnumServiceCategory), func(c string) bool {
		_, ok := serviceTemplates[c]
		return !ok
	})
}
