package util

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Optional holds a value that may be absent. Absent values encode as JSON
// null and SQL NULL.
type Optional[T any] struct {
	Val   T
	IsSet bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Val: v, IsSet: true}
}

func None[T any]() Optional[T] {
	return Optional[T]{}
}

// NonEmpty trims s and returns None when nothing is left.
func NonEmpty(s string) Optional[string] {
	s = strings.TrimSpace(s)
	if s == "" {
		return None[string]()
	}
	return Some(s)
}

func (o Optional[T]) Unwrap() T {
	if !o.IsSet {
		panic("called Unwrap on a None value")
	}
	return o.Val
}

func (o Optional[T]) UnwrapOr(defaultVal T) T {
	if !o.IsSet {
		return defaultVal
	}
	return o.Val
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.IsSet {
		return []byte("null"), nil
	}
	return json.Marshal(o.Val)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = None[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// Scan implements the sql.Scanner interface.
func (o *Optional[T]) Scan(value any) error {
	if value == nil {
		*o = None[T]()
		return nil
	}

	var v T
	switch t := any(&v).(type) {
	case interface{ Scan(any) error }:
		if err := t.Scan(value); err != nil {
			return err
		}
	default:
		cast, ok := value.(T)
		if !ok {
			return fmt.Errorf("util: cannot scan %T into Optional[%T]", value, v)
		}
		v = cast
	}

	*o = Some(v)
	return nil
}

// Value implements the driver.Valuer interface.
func (o Optional[T]) Value() (driver.Value, error) {
	if !o.IsSet {
		return nil, nil
	}
	switch t := any(o.Val).(type) {
	case driver.Valuer:
		return t.Value()
	default:
		return o.Val, nil
	}
}

func (o Optional[T]) String() string {
	if !o.IsSet {
		return ""
	}
	return fmt.Sprintf("%v", o.Val)
}
