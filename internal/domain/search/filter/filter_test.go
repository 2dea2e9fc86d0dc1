package filter

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/xsearch/internal/domain/search/record"
)

func floatPtr(f float64) *float64 { return &f }

// --- Condition tests ---

func TestNewMatch_Valid(t *testing.T) {
	c, err := NewMatch("category", "web")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Field() != "category" || c.Op() != OpEq || c.Text() != "web" {
		t.Errorf("unexpected condition: %+v", c)
	}
	if c.IsNumeric() {
		t.Error("IsNumeric() = true for match condition")
	}
	if got := c.String(); got != `category = "web"` {
		t.Errorf("String() = %q", got)
	}
}

func TestNewMatch_EmptyField(t *testing.T) {
	_, err := NewMatch("", "web")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "field is required") {
		t.Errorf("error = %q", err)
	}
}

func TestNewMatch_EmptyValue(t *testing.T) {
	_, err := NewMatch("category", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "match value") {
		t.Errorf("error = %q", err)
	}
}

func TestNewNumeric_UnsupportedOp(t *testing.T) {
	if _, err := NewNumeric("price", Op("!="), 1); err == nil {
		t.Fatal("expected error for unsupported operator")
	}
}

func TestCondition_NumberFormatting(t *testing.T) {
	c, _ := NewNumeric("price", OpLTE, 100)
	if got := c.String(); got != "price <= 100" {
		t.Errorf("String() = %q", got)
	}
	c, _ = NewNumeric("rating", OpGTE, 4.5)
	if got := c.String(); got != "rating >= 4.5" {
		t.Errorf("String() = %q", got)
	}
}

// --- Expression tests ---

func TestNewExpression_DropsEmptyGroups(t *testing.T) {
	m, _ := NewMatch("a", "1")
	expr, err := NewExpression(nil, []Condition{m}, []Condition{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(expr.Groups()) != 1 {
		t.Errorf("Groups() len = %d", len(expr.Groups()))
	}
	if expr.IsEmpty() {
		t.Error("IsEmpty() = true for non-empty expression")
	}
}

func TestNewExpression_Empty(t *testing.T) {
	expr, err := NewExpression()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !expr.IsEmpty() || expr.String() != "" {
		t.Errorf("expected empty expression, got %q", expr.String())
	}
}

func TestNewExpression_TooManyConditions(t *testing.T) {
	conds := make([]Condition, MaxConditionsPerGroup+1)
	for i := range conds {
		conds[i] = Condition{field: "k", op: OpEq, text: "v"}
	}
	_, err := NewExpression(conds)
	if err == nil {
		t.Fatal("expected error for too many conditions")
	}
	if !strings.Contains(err.Error(), "too many conditions") {
		t.Errorf("error = %q", err)
	}
}

func TestNewExpression_AtMaxConditions(t *testing.T) {
	conds := make([]Condition, MaxConditionsPerGroup)
	for i := range conds {
		conds[i] = Condition{field: "k", op: OpEq, text: "v"}
	}
	if _, err := NewExpression(conds, conds); err != nil {
		t.Fatalf("unexpected error for exactly max conditions: %v", err)
	}
}

func TestExpression_String(t *testing.T) {
	a, _ := NewMatch("category", "web")
	b, _ := NewMatch("category", "design")
	c, _ := NewNumeric("price", OpLTE, 50)
	expr, _ := NewExpression([]Condition{a, b}, []Condition{c})

	want := `(category = "web" OR category = "design") AND price <= 50`
	if got := expr.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

// --- Predicate tests ---

func TestBetween_Validation(t *testing.T) {
	if _, err := Between(nil, nil); err == nil {
		t.Error("expected error for no boundary")
	}
	if _, err := Between(floatPtr(5), floatPtr(1)); err == nil {
		t.Error("expected error for min > max")
	}
	p, err := Between(floatPtr(1), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Kind() != KindRange || p.Min() == nil || p.Max() != nil {
		t.Errorf("unexpected predicate: %+v", p)
	}
}

func TestParsePredicate(t *testing.T) {
	tests := []struct {
		name string
		in   any
		kind Kind
	}{
		{"string", "web", KindEq},
		{"number", float64(4), KindEq},
		{"bool", true, KindEq},
		{"list", []any{"a", "b"}, KindIn},
		{"string list", []string{"a"}, KindIn},
		{"range", map[string]any{"min": float64(1), "max": "9"}, KindRange},
		{"range aliases", map[string]any{"gte": float64(1)}, KindRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePredicate(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", p.Kind(), tt.kind)
			}
		})
	}
}

func TestParsePredicate_Invalid(t *testing.T) {
	bad := []any{
		[]any{},
		map[string]any{},
		map[string]any{"min": "abc"},
		struct{}{},
		[]any{map[string]any{}},
	}
	for _, in := range bad {
		if _, err := ParsePredicate(in); err == nil {
			t.Errorf("ParsePredicate(%#v): expected error", in)
		}
	}
}

func TestPredicate_CanonicalSortsValues(t *testing.T) {
	a := In("b", "a").Canonical().(map[string]any)["in"].([]string)
	b := In("a", "b").Canonical().(map[string]any)["in"].([]string)
	if strings.Join(a, ",") != strings.Join(b, ",") {
		t.Errorf("canonical forms differ: %v vs %v", a, b)
	}
}

// --- Builder tests ---

func TestBuilder_RangeBecomesBounds(t *testing.T) {
	b, err := For(record.Listing)
	if err != nil {
		t.Fatalf("For: %v", err)
	}
	r, _ := Between(floatPtr(10), floatPtr(100))
	got, err := b.BuildFilter(map[string]Predicate{"price": r})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "price >= 10 AND price <= 100" {
		t.Errorf("BuildFilter() = %q", got)
	}
}

func TestBuilder_MultiValueBecomesOrGroup(t *testing.T) {
	b, _ := For(record.Profile)
	got, err := b.BuildFilter(map[string]Predicate{
		"skills":   In("go", "rust"),
		"location": Eq("Berlin"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `location = "Berlin" AND (skills = "go" OR skills = "rust")`
	if got != want {
		t.Errorf("BuildFilter() = %q, want %q", got, want)
	}
}

func TestBuilder_NumericEquality(t *testing.T) {
	b, _ := For(record.Achievement)
	got, err := b.BuildFilter(map[string]Predicate{"year": Eq("2024")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "year = 2024" {
		t.Errorf("BuildFilter() = %q", got)
	}
	if _, err := b.Build(map[string]Predicate{"year": Eq("last year")}); err == nil {
		t.Error("expected error for non-numeric value on numeric field")
	}
}

func TestBuilder_Rejections(t *testing.T) {
	b, _ := For(record.Listing)
	r, _ := Between(floatPtr(1), nil)

	tests := []struct {
		name  string
		preds map[string]Predicate
		want  string
	}{
		{"unknown field", map[string]Predicate{"owner": Eq("x")}, "unknown filter field"},
		{"range on tag", map[string]Predicate{"category": r}, "non-numeric"},
		{"empty list", map[string]Predicate{"category": In()}, "empty value list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(tt.preds)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want substring %q", err, tt.want)
			}
		})
	}
}

func TestBuilder_EmptyPredicates(t *testing.T) {
	b, _ := For(record.Profile)
	expr, err := b.Build(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !expr.IsEmpty() {
		t.Error("expected empty expression")
	}
}

func TestFor_UnknownType(t *testing.T) {
	if _, err := For(record.Type("invoice")); err == nil {
		t.Fatal("expected error")
	}
}

func TestFields_ReturnsCopy(t *testing.T) {
	f := Fields(record.Listing)
	delete(f, "price")
	if _, ok := Fields(record.Listing)["price"]; !ok {
		t.Error("Fields must return a copy")
	}
}
