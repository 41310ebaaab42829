// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package fmi

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is one typed scalar exchanged with a slave. Only the field matching
// Type is meaningful.
type Value struct {
	Type Type
	Real float64
	Int  int32
	Bool bool
	Str  string
}

func RealValue(v float64) Value  { return Value{Type: Real, Real: v} }
func IntegerValue(v int32) Value { return Value{Type: Integer, Int: v} }
func BooleanValue(v bool) Value  { return Value{Type: Boolean, Bool: v} }
func StringValue(v string) Value { return Value{Type: String, Str: v} }

// Float returns the value as a real number. Booleans map to 0 and 1; strings
// are not numeric and return NaN.
func (v Value) Float() float64 {
	switch v.Type {
	case Real:
		return v.Real
	case Integer:
		return float64(v.Int)
	case Boolean:
		if v.Bool {
			return 1
		}
		return 0
	default:
		return math.NaN()
	}
}

// Convert returns v expressed as type t. Integer to Real is lossless; Real to
// Integer rounds half away from zero and fails outside the int32 range.
func (v Value) Convert(t Type) (Value, error) {
	if v.Type == t {
		return v, nil
	}
	switch t {
	case Real:
		if v.Type == Integer || v.Type == Boolean {
			return RealValue(v.Float()), nil
		}
	case Integer:
		switch v.Type {
		case Real:
			r := math.Round(v.Real)
			if math.IsNaN(r) || r > math.MaxInt32 || r < math.MinInt32 {
				return Value{}, fmt.Errorf("value %g does not fit an Integer", v.Real)
			}
			return IntegerValue(int32(r)), nil
		case Boolean:
			return IntegerValue(int32(v.Float())), nil
		}
	case Boolean:
		switch v.Type {
		case Integer:
			return BooleanValue(v.Int != 0), nil
		case Real:
			return BooleanValue(v.Real != 0), nil
		}
	case String:
		return StringValue(v.String()), nil
	}
	return Value{}, fmt.Errorf("cannot convert %s value to %s", v.Type, t)
}

func (v Value) String() string {
	switch v.Type {
	case Real:
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	case Integer:
		return strconv.FormatInt(int64(v.Int), 10)
	case Boolean:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

// ParseValue interprets a start attribute as a value of type t.
func ParseValue(t Type, s string) (Value, error) {
	s = strings.TrimSpace(s)
	switch t {
	case Real:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid Real %q: %w", s, err)
		}
		return RealValue(f), nil
	case Integer:
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("invalid Integer %q: %w", s, err)
		}
		return IntegerValue(int32(i)), nil
	case Boolean:
		switch s {
		case "true", "1":
			return BooleanValue(true), nil
		case "false", "0":
			return BooleanValue(false), nil
		}
		return Value{}, fmt.Errorf("invalid Boolean %q", s)
	default:
		return StringValue(s), nil
	}
}
