package filter

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/kailas-cloud/xsearch/internal/domain/search/record"
)

// FieldKind is the filterable shape of a field.
type FieldKind int

const (
	// Tag fields support equality and multi-value matches.
	Tag FieldKind = iota
	// Numeric fields additionally support ranges.
	Numeric
)

// Builder translates caller predicates into the native expression of one record type.
type Builder interface {
	Type() record.Type
	Build(preds map[string]Predicate) (Expression, error)
	BuildFilter(preds map[string]Predicate) (string, error)
}

// schema is a Builder with a per-type field whitelist.
type schema struct {
	typ    record.Type
	fields map[string]FieldKind
}

var builders = map[record.Type]schema{
	record.Profile: {typ: record.Profile, fields: map[string]FieldKind{
		"location":              Tag,
		"availability":          Tag,
		"skills":                Tag,
		"rating":                Numeric,
		"completion_percentage": Numeric,
		"years_of_experience":   Numeric,
	}},
	record.Listing: {typ: record.Listing, fields: map[string]FieldKind{
		"category":      Tag,
		"price":         Numeric,
		"delivery_days": Numeric,
		"rating":        Numeric,
		"likes":         Numeric,
		"views":         Numeric,
	}},
	record.Achievement: {typ: record.Achievement, fields: map[string]FieldKind{
		"issuer":     Tag,
		"profile_id": Tag,
		"year":       Numeric,
	}},
}

// For returns the builder of a record type.
func For(t record.Type) (Builder, error) {
	b, ok := builders[t]
	if !ok {
		return nil, fmt.Errorf("no filter builder for record type %q", t)
	}
	return b, nil
}

// Fields returns the filterable fields of a record type and their kinds.
func Fields(t record.Type) map[string]FieldKind {
	out := make(map[string]FieldKind, len(builders[t].fields))
	for k, v := range builders[t].fields {
		out[k] = v
	}
	return out
}

func (s schema) Type() record.Type { return s.typ }

// Build validates predicates against the whitelist and produces an Expression.
// Fields are visited in sorted order so the output is deterministic.
func (s schema) Build(preds map[string]Predicate) (Expression, error) {
	if len(preds) == 0 {
		return Expression{}, nil
	}

	names := make([]string, 0, len(preds))
	for name := range preds {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([][]Condition, 0, len(names))
	for _, name := range names {
		kind, ok := s.fields[name]
		if !ok {
			return Expression{}, fmt.Errorf("unknown filter field %q for %s", name, s.typ)
		}
		g, err := s.translate(name, kind, preds[name])
		if err != nil {
			return Expression{}, err
		}
		groups = append(groups, g...)
	}
	return NewExpression(groups...)
}

// BuildFilter is Build rendered in the textual filter language.
func (s schema) BuildFilter(preds map[string]Predicate) (string, error) {
	expr, err := s.Build(preds)
	if err != nil {
		return "", err
	}
	return expr.String(), nil
}

func (s schema) translate(name string, kind FieldKind, p Predicate) ([][]Condition, error) {
	switch p.Kind() {
	case KindEq:
		c, err := equality(name, kind, p.Value())
		if err != nil {
			return nil, err
		}
		return [][]Condition{{c}}, nil

	case KindIn:
		values := p.Values()
		if len(values) == 0 {
			return nil, fmt.Errorf("empty value list for field %q", name)
		}
		group := make([]Condition, 0, len(values))
		for _, v := range values {
			c, err := equality(name, kind, v)
			if err != nil {
				return nil, err
			}
			group = append(group, c)
		}
		return [][]Condition{group}, nil

	case KindRange:
		if kind != Numeric {
			return nil, fmt.Errorf("range filter on non-numeric field %q", name)
		}
		var out [][]Condition
		if lower := p.Min(); lower != nil {
			c, err := NewNumeric(name, OpGTE, *lower)
			if err != nil {
				return nil, err
			}
			out = append(out, []Condition{c})
		}
		if upper := p.Max(); upper != nil {
			c, err := NewNumeric(name, OpLTE, *upper)
			if err != nil {
				return nil, err
			}
			out = append(out, []Condition{c})
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported predicate for field %q", name)
}

func equality(name string, kind FieldKind, value string) (Condition, error) {
	if kind == Numeric {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Condition{}, fmt.Errorf("field %q expects a number, got %q", name, value)
		}
		return NewNumeric(name, OpEq, f)
	}
	return NewMatch(name, value)
}
