package record

import "testing"

func TestParse(t *testing.T) {
	for _, name := range []string{"profile", "listing", "achievement"} {
		if _, err := Parse(name); err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", name, err)
		}
	}
	if _, err := Parse("invoice"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestAll_EnumerationOrder(t *testing.T) {
	all := All()
	for i, typ := range all {
		if typ.Rank() != i {
			t.Errorf("%s rank = %d, want %d", typ, typ.Rank(), i)
		}
	}
}

func TestDecode_Profile(t *testing.T) {
	h, err := Decode(Profile, "p1", map[string]string{
		"name":                  "Ada",
		"skills":                "go, rust,,",
		"rating":                "4.5",
		"completion_percentage": "80",
		"years_of_experience":   "bogus",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, ok := h.Profile()
	if !ok {
		t.Fatal("expected profile payload")
	}
	if p.ID != "p1" || p.Name != "Ada" {
		t.Errorf("unexpected profile: %+v", p)
	}
	if len(p.Skills) != 2 || p.Skills[1] != "rust" {
		t.Errorf("skills = %v", p.Skills)
	}
	if p.Rating != 4.5 || p.CompletionPercentage != 80 || p.YearsOfExperience != 0 {
		t.Errorf("numerics = %v %v %v", p.Rating, p.CompletionPercentage, p.YearsOfExperience)
	}
	if h.Title() != "Ada" || h.ID() != "p1" {
		t.Errorf("Title/ID = %q/%q", h.Title(), h.ID())
	}
}

func TestDecode_ListingIntegerFromFloat(t *testing.T) {
	h, err := Decode(Listing, "l1", map[string]string{"title": "Web", "likes": "12.0", "views": "300"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l, _ := h.Listing()
	if l.Likes != 12 || l.Views != 300 {
		t.Errorf("likes/views = %d/%d", l.Likes, l.Views)
	}
	if _, ok := h.Profile(); ok {
		t.Error("listing hit must not expose a profile payload")
	}
}

func TestDecodeJSON_Achievement(t *testing.T) {
	h, err := DecodeJSON(Achievement, "a9", []byte(`{"id":"x","title":"Top Seller","year":2024}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, ok := h.Achievement()
	if !ok {
		t.Fatal("expected achievement payload")
	}
	if a.ID != "a9" || a.Year != 2024 || a.Title != "Top Seller" {
		t.Errorf("unexpected achievement: %+v", a)
	}
}

func TestDecodeJSON_Invalid(t *testing.T) {
	if _, err := DecodeJSON(Listing, "l1", []byte(`{`)); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := Decode(Type("x"), "1", nil); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
