package validator

import "slices"

// Enum names usable with the "enum" tag, e.g. `validate:"enum=horse_gender"`.
const (
	EnumOrganizationType = "organization_type"
	EnumSubscriptionTier = "subscription_tier"
	EnumAccountType      = "account_type"
	EnumRolePermission   = "role_permission"
	EnumHorseGender      = "horse_gender"
	EnumHorseStatus      = "horse_status"
	EnumConsumableType   = "consumable_type"
	EnumConsumableUnit   = "consumable_unit"
	EnumServiceCategory  = "service_category"
	EnumServiceUnitType  = "service_unit_type"
	EnumBillingFrequency = "billing_frequency"
	EnumServiceTier      = "service_tier"
)

var enums = map[string][]string{
	EnumOrganizationType: {"stable", "organization", "trainer", "enterprise"},
	EnumSubscriptionTier: {"basic", "premium", "enterprise"},
	EnumAccountType:      {"personal", "organization", "trainer"},
	EnumRolePermission: {
		"manage_organization", "manage_horses", "assign_tasks", "view_all",
		"view_assigned", "update_tasks", "manage_medical", "view_own_horses",
	},
	EnumHorseGender:    {"stallion", "mare", "gelding", "filly", "colt"},
	EnumHorseStatus:    {"active", "retired", "injured", "breeding", "training", "racing"},
	EnumConsumableType: {"feed", "medicine", "supplement", "equipment", "supply"},
	EnumConsumableUnit: {"unit", "kg", "lbs", "g", "oz", "ml", "l", "fl oz", "cup", "bag", "bale", "box", "bottle", "tube", "dose"},
	EnumServiceCategory: {
		"training", "boarding", "veterinary", "grooming", "farrier",
		"feed", "medicine", "transportation", "other",
	},
	EnumServiceUnitType:  {"hour", "day", "session", "month", "event", "task", "head", "percentage", "fixed"},
	EnumBillingFrequency: {"daily", "session", "weekly", "monthly", "yearly", "per_event", "percentage", "per_task"},
	EnumServiceTier:      {"basic", "standard", "premium", "enterprise"},
}

var consumableCategories = map[string][]string{
	"feed":       {"Hay", "Grain", "Pellets", "Treats", "Pasture", "Silage", "Chaff", "Other Feed"},
	"medicine":   {"Antibiotics", "Anti-inflammatory", "Dewormer", "Vaccines", "Pain Relief", "Joint Supplements", "Topical Treatment", "Respiratory", "Digestive", "Other Medicine"},
	"supplement": {"Vitamins", "Minerals", "Probiotics", "Joint Support", "Coat & Hoof", "Calming", "Energy", "Weight Gain", "Electrolytes", "Other Supplement"},
	"equipment":  {"Grooming", "Tack", "Blankets", "Boots & Wraps", "Safety Equipment", "Training Equipment", "Stable Equipment", "Medical Equipment", "Other Equipment"},
	"supply":     {"Bedding", "Cleaning Supplies", "Tools", "Safety Items", "Office Supplies", "Other Supply"},
}

// Enum returns a copy of the allowed values of the named enumeration.
func Enum(name string) []string {
	return slices.Clone(enums[name])
}

// InEnum reports whether value is allowed by the named enumeration.
func InEnum(name, value string) bool {
	return slices.Contains(enums[name], value)
}

// ConsumableCategories returns the categories allowed for a consumable type.
func ConsumableCategories(consumableType string) []string {
	return slices.Clone(consumableCategories[consumableType])
}

// Options is every enumeration the rules draw from, keyed by name.
type Options struct {
	Enums                map[string][]string `json:"enums"`
	ConsumableCategories map[string][]string `json:"consumable_categories"`
}

func SchemaOptions() Options {
	opts := Options{
		Enums:                make(map[string][]string, len(enums)),
		ConsumableCategories: make(map[string][]string, len(consumableCategories)),
	}
	for k, v := range enums {
		opts.Enums[k] = slices.Clone(v)
	}
	for k, v := range consumableCategories {
		opts.ConsumableCategories[k] = slices.Clone(v)
	}
	return opts
}
