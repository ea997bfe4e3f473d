// Package form decodes loosely typed input from HTML form controls, where
// numbers and booleans often arrive as strings.
package form

import (
	"encoding/json"
	"math"
	"strings"

	"stabledesk/internal/util"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Number accepts a JSON number, a numeric string, an empty string or null.
// Anything else decodes as an invalid number so validation can report it
// next to the other field errors instead of failing the whole request.
type Number struct {
	Value   float64
	Set     bool
	Invalid bool
}

func NewNumber(v float64) Number {
	return Number{Value: v, Set: true}
}

func (n *Number) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*n = Number{}
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return nil
		}
		raw = v
	case bool:
		*n = Number{Set: true, Invalid: true}
		return nil
	}

	f, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*n = Number{Set: true, Invalid: true}
		return nil
	}
	*n = Number{Value: f, Set: true}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Set || n.Invalid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Or returns the number, or def when it is absent.
func (n Number) Or(def float64) float64 {
	if !n.Set || n.Invalid {
		return def
	}
	return n.Value
}

func (n Number) Optional() util.Optional[float64] {
	if !n.Set || n.Invalid {
		return util.None[float64]()
	}
	return util.Some(n.Value)
}

func (n Number) Int() int64 {
	return int64(math.Round(n.Or(0)))
}

func (n Number) Decimal() util.Optional[decimal.Decimal] {
	if !n.Set || n.Invalid {
		return util.None[decimal.Decimal]()
	}
	return util.Some(decimal.NewFromFloat(n.Value))
}

// Flag accepts a JSON boolean or the string and number spellings that form
// controls produce ("on", "true", "1", "yes").
type Flag struct {
	Value bool
	Set   bool
}

func NewFlag(v bool) Flag {
	return Flag{Value: v, Set: true}
}

func (f *Flag) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*f = Flag{}
	switch v := raw.(type) {
	case nil:
		return nil
	case float64:
		*f = Flag{Value: v != 0, Set: true}
		return nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "":
			return nil
		case "on", "yes", "y":
			*f = Flag{Value: true, Set: true}
			return nil
		case "off", "no", "n":
			*f = Flag{Value: false, Set: true}
			return nil
		}
		raw = strings.TrimSpace(v)
	}

	b, err := cast.ToBoolE(raw)
	if err != nil {
		// Unrecognised strings are treated as truthy, like a checked box.
		*f = Flag{Value: true, Set: true}
		return nil
	}
	*f = Flag{Value: b, Set: true}
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// Or returns the flag, or def when it is absent.
func (f Flag) Or(def bool) bool {
	if !f.Set {
		return def
	}
	return f.Value
}

func (f Flag) Optional() util.Optional[bool] {
	if !f.Set {
		return util.None[bool]()
	}
	return util.Some(f.Value)
}
