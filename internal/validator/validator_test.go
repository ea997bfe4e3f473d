package validator

import (
	"encoding/json"
	"strings"
	"testing"

	"stabledesk/internal/form"
	"stabledesk/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stockItem struct {
	Name            string      `json:"name" label:"Name" validate:"notblank"`
	Type            string      `json:"type" label:"Type" validate:"notblank,enum=consumable_type"`
	Category        string      `json:"category" label:"Category" validate:"notblank,consumable_category=Type"`
	DefaultQuantity form.Number `json:"default_quantity" label:"Default quantity" validate:"gt=0"`
	CurrentStock    form.Number `json:"current_stock" label:"Current stock" validate:"omitempty,gte=0"`
	Active          form.Flag   `json:"is_active"`
}

type priced struct {
	PriceRangeMin form.Number `json:"price_range_min" label:"Price range min" validate:"omitempty,gte=0,price_range=PriceRangeMax"`
	PriceRangeMax form.Number `json:"price_range_max" label:"Price range max" validate:"omitempty,gte=0"`
}

type signup struct {
	Email    string `json:"email" label:"Email" validate:"notblank,email"`
	Password string `json:"password" label:"Password" validate:"notblank,password_strength"`
}

func decode[T any](t *testing.T, raw string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestValidator_Struct(t *testing.T) {
	v := New()

	tests := []struct {
		name string
		raw  string
		want Errors
	}{
		{
			name: "valid feed",
			raw:  `{"name":"Timothy hay","type":"feed","category":"Hay","default_quantity":"20","current_stock":0}`,
		},
		{
			name: "blank name and zero quantity",
			raw:  `{"name":"  ","type":"feed","category":"Hay","default_quantity":0}`,
			want: Errors{"Name is required", "Default quantity must be greater than 0"},
		},
		{
			name: "missing quantity",
			raw:  `{"name":"Bute","type":"medicine","category":"Pain Relief"}`,
			want: Errors{"Default quantity must be greater than 0"},
		},
		{
			name: "unparseable quantity",
			raw:  `{"name":"Bute","type":"medicine","category":"Pain Relief","default_quantity":"lots"}`,
			want: Errors{"Default quantity must be greater than 0"},
		},
		{
			name: "negative stock",
			raw:  `{"name":"Shavings","type":"supply","category":"Bedding","default_quantity":1,"current_stock":-1}`,
			want: Errors{"Current stock must be non-negative"},
		},
		{
			name: "category from another type",
			raw:  `{"name":"Shavings","type":"supply","category":"Hay","default_quantity":1}`,
			want: Errors{"Category does not belong to the selected type"},
		},
		{
			name: "unknown type",
			raw:  `{"name":"Shavings","type":"gadget","category":"Hay","default_quantity":1}`,
			want: Errors{"Type must be one of: feed, medicine, supplement, equipment, supply"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := decode[stockItem](t, tt.raw)
			err := v.Struct(&item)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			var errs Errors
			require.ErrorAs(t, err, &errs)
			assert.Equal(t, tt.want, errs)
		})
	}
}

func TestValidator_PriceRange(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		raw     string
		isValid bool
	}{
		{"no bounds", `{}`, true},
		{"only min", `{"price_range_min":10}`, true},
		{"only max", `{"price_range_max":10}`, true},
		{"min below max", `{"price_range_min":10,"price_range_max":"20"}`, true},
		{"equal bounds", `{"price_range_min":20,"price_range_max":20}`, true},
		{"min above max", `{"price_range_min":30,"price_range_max":20}`, false},
		{"zero max", `{"price_range_min":5,"price_range_max":0}`, false},
		{"zero max as string", `{"price_range_min":5,"price_range_max":"0"}`, false},
		{"zero min with max", `{"price_range_min":0,"price_range_max":10}`, true},
		{"both zero", `{"price_range_min":0,"price_range_max":0}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := decode[priced](t, tt.raw)
			err := v.Struct(&p)
			if tt.isValid {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, Errors{"Price range min cannot be greater than max"}, err)
		})
	}
}

func TestValidator_PasswordStrength(t *testing.T) {
	v := New()

	tests := []struct {
		name     string
		password string
		isValid  bool
	}{
		{"valid_password", "Sup3r$ecret", true},
		{"too_short", "Sh0rt!", false},
		{"no_uppercase", "nouppercase123!", false},
		{"no_lowercase", "NOLOWERCASE123!", false},
		{"no_digits", "NoDigitsHere!", false},
		{"no_special_chars", "NoSpecialChars123", false},
		{"max_length", "Aa1!" + strings.Repeat("x", 68), true},
		{"over_bcrypt_limit", "Aa1!" + strings.Repeat("x", 70), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(&signup{Email: "owner@example.com", Password: tt.password})
			assert.Equal(t, tt.isValid, err == nil)
			assert.Equal(t, tt.isValid, v.Password(tt.password))
		})
	}
}

type rolePatch struct {
	Name  util.Optional[string] `json:"name" label:"Name" validate:"omitempty,notblank"`
	Color util.Optional[string] `json:"color" label:"Color" validate:"omitempty,hexcolor"`
}

func TestValidator_OptionalString(t *testing.T) {
	v := New()

	tests := []struct {
		name string
		raw  string
		want Errors
	}{
		{name: "absent", raw: `{}`},
		{name: "null", raw: `{"name":null}`},
		{name: "given", raw: `{"name":"Groom","color":"#3B82F6"}`},
		{name: "empty name", raw: `{"name":""}`, want: Errors{"Name is required"}},
		{name: "blank name", raw: `{"name":"   "}`, want: Errors{"Name is required"}},
		{name: "empty color", raw: `{"color":""}`, want: Errors{"Color must be a hex color such as #007AFF"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch := decode[rolePatch](t, tt.raw)
			err := v.Struct(&patch)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, err)
		})
	}
}

func TestItems_PrefixesAndKeepsOrder(t *testing.T) {
	v := New()

	items := []stockItem{
		decode[stockItem](t, `{"name":"Hay","type":"feed","category":"Hay","default_quantity":1}`),
		decode[stockItem](t, `{"type":"feed","category":"Hay","default_quantity":1,"current_stock":-2}`),
		decode[stockItem](t, `{"name":"Oats","type":"feed","category":"Grain"}`),
	}

	err := Items(v, "Consumable", items)

	assert.Equal(t, Errors{
		"Consumable 2: Name is required",
		"Consumable 2: Current stock must be non-negative",
		"Consumable 3: Default quantity must be greater than 0",
	}, err)
}

func TestItems_AllValid(t *testing.T) {
	v := New()
	items := []signup{{Email: "a@example.com", Password: "Sup3r$ecret"}}
	assert.NoError(t, Items(v, "Account", items))
}

func TestSchemaOptions(t *testing.T) {
	opts := SchemaOptions()

	assert.Equal(t, []string{"stable", "organization", "trainer", "enterprise"}, opts.Enums[EnumOrganizationType])
	assert.Contains(t, opts.ConsumableCategories["medicine"], "Dewormer")

	opts.Enums[EnumOrganizationType][0] = "changed"
	assert.True(t, InEnum(EnumOrganizationType, "stable"))
}
