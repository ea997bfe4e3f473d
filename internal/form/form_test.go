package form

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Number
	}{
		{"json number", `12.5`, Number{Value: 12.5, Set: true}},
		{"numeric string", `"16.2"`, Number{Value: 16.2, Set: true}},
		{"padded string", `" 3 "`, Number{Value: 3, Set: true}},
		{"empty string", `""`, Number{}},
		{"null", `null`, Number{}},
		{"garbage string", `"tall"`, Number{Set: true, Invalid: true}},
		{"boolean", `true`, Number{Set: true, Invalid: true}},
		{"negative", `-4`, Number{Value: -4, Set: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Number
			require.NoError(t, json.Unmarshal([]byte(tt.input), &n))
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestNumberDefaults(t *testing.T) {
	var missing Number
	assert.Equal(t, 0.0, missing.Or(0))
	assert.False(t, missing.Optional().IsSet)
	assert.False(t, missing.Decimal().IsSet)

	n := NewNumber(75)
	assert.Equal(t, int64(75), n.Int())
	assert.True(t, decimal.NewFromInt(75).Equal(n.Decimal().Val))
}

func TestFlagUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Flag
	}{
		{"true", `true`, Flag{Value: true, Set: true}},
		{"false", `false`, Flag{Value: false, Set: true}},
		{"checkbox on", `"on"`, Flag{Value: true, Set: true}},
		{"string false", `"false"`, Flag{Value: false, Set: true}},
		{"zero", `0`, Flag{Value: false, Set: true}},
		{"one string", `"1"`, Flag{Value: true, Set: true}},
		{"empty", `""`, Flag{}},
		{"null", `null`, Flag{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Flag
			require.NoError(t, json.Unmarshal([]byte(tt.input), &f))
			assert.Equal(t, tt.want, f)
		})
	}
}

func TestFlagOr(t *testing.T) {
	var f Flag
	assert.True(t, f.Or(true))
	assert.False(t, NewFlag(false).Or(true))
}

func TestMarshalRoundTripsForDisplay(t *testing.T) {
	out, err := json.Marshal(struct {
		N Number `json:"n"`
		F Flag   `json:"f"`
	}{NewNumber(1.5), Flag{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1.5,"f":null}`, string(out))
}
