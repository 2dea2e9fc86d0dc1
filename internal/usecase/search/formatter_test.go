package search

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kailas-cloud/xsearch/internal/domain/search/record"
)

func TestProfileScore(t *testing.T) {
	p := record.ProfileRecord{Rating: 4.5, CompletionPercentage: 80, YearsOfExperience: 6}
	want := 1 + 0.2*4.5 + 0.01*80 + 0.1*6
	if got := ProfileScore(p); math.Abs(got-want) > 1e-9 {
		t.Errorf("ProfileScore() = %v, want %v", got, want)
	}
}

func TestListingScore(t *testing.T) {
	l := record.ListingRecord{Rating: 4, Likes: 20, Views: 1000}
	want := 1 + 0.3*4 + 0.01*20 + 0.001*1000
	if got := ListingScore(l); math.Abs(got-want) > 1e-9 {
		t.Errorf("ListingScore() = %v, want %v", got, want)
	}
}

func TestAchievementScore(t *testing.T) {
	if got := AchievementScore(record.AchievementRecord{}); got != 1.5 {
		t.Errorf("AchievementScore() = %v, want 1.5", got)
	}
}

func TestScore_InvalidSignalsCountAsZero(t *testing.T) {
	p := record.ProfileRecord{Rating: math.NaN(), CompletionPercentage: math.Inf(1), YearsOfExperience: -3}
	if got := ProfileScore(p); got != 1 {
		t.Errorf("ProfileScore() = %v, want baseline 1", got)
	}
	l := record.ListingRecord{Rating: -1, Likes: -5}
	if got := ListingScore(l); got != 1 {
		t.Errorf("ListingScore() = %v, want baseline 1", got)
	}
}

func TestFormat_Profile(t *testing.T) {
	f := NewFormatter("https://example.com/")
	env := f.Format(record.NewProfileHit(record.ProfileRecord{ID: "7", Slug: "ada", Name: "Ada", Rating: 5}))

	if env.Type != record.Profile || env.Title != "Ada" || env.ID != "7" {
		t.Errorf("unexpected envelope: %+v", env)
	}
	if env.SourceURL != "https://example.com/profiles/ada" {
		t.Errorf("SourceURL = %q", env.SourceURL)
	}
	if skills, ok := env.SummaryFields["skills"].([]string); !ok || skills == nil {
		t.Errorf("skills = %#v, want empty slice", env.SummaryFields["skills"])
	}
}

func TestFormat_ListingFallsBackToID(t *testing.T) {
	env := NewFormatter("").Format(record.NewListingHit(record.ListingRecord{ID: "42", Title: "Logo"}))
	if env.SourceURL != "/listings/42" {
		t.Errorf("SourceURL = %q", env.SourceURL)
	}
}

func TestFormat_AchievementLinksToProfile(t *testing.T) {
	env := NewFormatter("").Format(record.NewAchievementHit(record.AchievementRecord{
		ID: "9", Title: "Award", ProfileID: "3", ProfileSlug: "ada",
	}))
	if env.SourceURL != "/profiles/ada#achievement-9" {
		t.Errorf("SourceURL = %q", env.SourceURL)
	}
	if env.RelevanceScore != 1.5 {
		t.Errorf("RelevanceScore = %v", env.RelevanceScore)
	}
}

func TestFormat_TruncatesDescription(t *testing.T) {
	long := strings.Repeat("ж", excerptLength+40)
	env := NewFormatter("").Format(record.NewListingHit(record.ListingRecord{ID: "1", Description: long}))
	got := env.SummaryFields["description"].(string)
	if n := utf8.RuneCountInString(got); n != excerptLength+1 {
		t.Errorf("excerpt length = %d runes, want %d", n, excerptLength+1)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("excerpt %q must end with an ellipsis", got)
	}
}
