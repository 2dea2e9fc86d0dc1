package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxConditionsPerGroup is the maximum number of conditions per OR-group.
const MaxConditionsPerGroup = 32

// MaxGroups is the maximum number of AND-ed groups in one expression.
const MaxGroups = 32

// Op is a comparison operator of the filter language.
type Op string

const (
	// OpEq is equality.
	OpEq Op = "="
	// OpGTE is a lower inclusive bound.
	OpGTE Op = ">="
	// OpLTE is an upper inclusive bound.
	OpLTE Op = "<="
)

// Expression is a conjunction of OR-groups: (a OR b) AND c AND ...
type Expression struct {
	groups [][]Condition
}

// NewExpression validates and creates an Expression. Empty groups are dropped.
func NewExpression(groups ...[]Condition) (Expression, error) {
	kept := make([][]Condition, 0, len(groups))
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		if len(g) > MaxConditionsPerGroup {
			return Expression{}, fmt.Errorf("too many conditions in group (max %d)", MaxConditionsPerGroup)
		}
		kept = append(kept, append([]Condition(nil), g...))
	}
	if len(kept) > MaxGroups {
		return Expression{}, fmt.Errorf("too many filter groups (max %d)", MaxGroups)
	}
	return Expression{groups: kept}, nil
}

// Groups returns the AND-ed OR-groups.
func (e Expression) Groups() [][]Condition { return e.groups }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.groups) == 0 }

// String renders the expression as `field op value` clauses joined by AND / OR.
func (e Expression) String() string {
	parts := make([]string, 0, len(e.groups))
	for _, g := range e.groups {
		if len(g) == 1 {
			parts = append(parts, g[0].String())
			continue
		}
		or := make([]string, len(g))
		for i, c := range g {
			or[i] = c.String()
		}
		parts = append(parts, "("+strings.Join(or, " OR ")+")")
	}
	return strings.Join(parts, " AND ")
}

// Condition is a single `field op value` clause.
type Condition struct {
	field   string
	op      Op
	text    string
	number  float64
	numeric bool
}

// NewMatch creates an equality condition on a tag field.
func NewMatch(field, value string) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("filter field is required")
	}
	if value == "" {
		return Condition{}, fmt.Errorf("match value is required for field %q", field)
	}
	return Condition{field: field, op: OpEq, text: value}, nil
}

// NewNumeric creates a numeric comparison condition.
func NewNumeric(field string, op Op, value float64) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("filter field is required")
	}
	switch op {
	case OpEq, OpGTE, OpLTE:
	default:
		return Condition{}, fmt.Errorf("unsupported operator %q", op)
	}
	return Condition{field: field, op: op, number: value, numeric: true}, nil
}

// Field returns the field name.
func (c Condition) Field() string { return c.field }

// Op returns the comparison operator.
func (c Condition) Op() Op { return c.op }

// IsNumeric reports whether the value is a number.
func (c Condition) IsNumeric() bool { return c.numeric }

// Text returns the tag value of a match condition.
func (c Condition) Text() string { return c.text }

// Number returns the value of a numeric condition.
func (c Condition) Number() float64 { return c.number }

// String renders the condition, quoting tag values.
func (c Condition) String() string {
	if c.numeric {
		return c.field + " " + string(c.op) + " " + FormatNumber(c.number)
	}
	return c.field + " " + string(c.op) + " " + strconv.Quote(c.text)
}

// FormatNumber renders a float without trailing zeros.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
