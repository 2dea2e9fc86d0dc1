package filter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind discriminates predicate shapes.
type Kind int

const (
	// KindEq matches a single value.
	KindEq Kind = iota
	// KindIn matches any of several values.
	KindIn
	// KindRange bounds a numeric field.
	KindRange
)

// Predicate is a caller-supplied constraint on one field, before translation.
type Predicate struct {
	kind   Kind
	value  string
	values []string
	min    *float64
	max    *float64
}

// Eq creates an equality predicate.
func Eq(value string) Predicate { return Predicate{kind: KindEq, value: value} }

// In creates a multi-value predicate.
func In(values ...string) Predicate {
	return Predicate{kind: KindIn, values: append([]string(nil), values...)}
}

// Between creates an inclusive range predicate. At least one bound is required.
func Between(lower, upper *float64) (Predicate, error) {
	if lower == nil && upper == nil {
		return Predicate{}, fmt.Errorf("at least one range boundary is required")
	}
	if lower != nil && upper != nil && *lower > *upper {
		return Predicate{}, fmt.Errorf("range min %s exceeds max %s", FormatNumber(*lower), FormatNumber(*upper))
	}
	return Predicate{kind: KindRange, min: copyFloat(lower), max: copyFloat(upper)}, nil
}

// Kind returns the predicate shape.
func (p Predicate) Kind() Kind { return p.kind }

// Value returns the equality value.
func (p Predicate) Value() string { return p.value }

// Values returns the multi-value set.
func (p Predicate) Values() []string { return append([]string(nil), p.values...) }

// Min returns the lower bound, nil if open.
func (p Predicate) Min() *float64 { return copyFloat(p.min) }

// Max returns the upper bound, nil if open.
func (p Predicate) Max() *float64 { return copyFloat(p.max) }

// Canonical returns an order-independent representation used for hashing.
func (p Predicate) Canonical() any {
	switch p.kind {
	case KindIn:
		vs := p.Values()
		sort.Strings(vs)
		return map[string]any{"in": vs}
	case KindRange:
		m := map[string]any{}
		if p.min != nil {
			m["min"] = *p.min
		}
		if p.max != nil {
			m["max"] = *p.max
		}
		return m
	}
	return map[string]any{"eq": p.value}
}

// ParsePredicate converts a decoded JSON/query value into a Predicate.
// Scalars become Eq, arrays become In, objects with min/max (or gte/lte) become ranges.
func ParsePredicate(v any) (Predicate, error) {
	switch val := v.(type) {
	case []any:
		values := make([]string, 0, len(val))
		for _, item := range val {
			s, err := scalarString(item)
			if err != nil {
				return Predicate{}, err
			}
			values = append(values, s)
		}
		if len(values) == 0 {
			return Predicate{}, fmt.Errorf("empty value list")
		}
		return In(values...), nil
	case []string:
		if len(val) == 0 {
			return Predicate{}, fmt.Errorf("empty value list")
		}
		return In(val...), nil
	case map[string]any:
		lower, err := boundOf(val, "min", "gte")
		if err != nil {
			return Predicate{}, err
		}
		upper, err := boundOf(val, "max", "lte")
		if err != nil {
			return Predicate{}, err
		}
		return Between(lower, upper)
	}
	s, err := scalarString(v)
	if err != nil {
		return Predicate{}, err
	}
	return Eq(s), nil
}

func boundOf(m map[string]any, keys ...string) (*float64, error) {
	for _, k := range keys {
		raw, ok := m[k]
		if !ok || raw == nil {
			continue
		}
		s, err := scalarString(raw)
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("range bound %q is not a number", k)
		}
		return &f, nil
	}
	return nil, nil
}

func scalarString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return FormatNumber(val), nil
	case float32:
		return FormatNumber(float64(val)), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case json.Number:
		return val.String(), nil
	}
	return "", fmt.Errorf("unsupported filter value of type %T", v)
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
