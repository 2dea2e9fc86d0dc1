package search

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/xsearch/internal/domain/search/record"
	"github.com/kailas-cloud/xsearch/internal/domain/search/result"
)

// Signal weights of the cross-type merge score.
const (
	profileRatingWeight     = 0.2
	profileCompletionWeight = 0.01
	profileYearsWeight      = 0.1

	listingRatingWeight = 0.3
	listingLikesWeight  = 0.01
	listingViewsWeight  = 0.001

	achievementBonus = 0.5
)

// excerptLength bounds descriptions in summary fields, in runes.
const excerptLength = 160

// Formatter turns typed hits into envelopes.
type Formatter struct {
	baseURL string
}

// NewFormatter creates a formatter. baseURL prefixes every source URL and may be empty.
func NewFormatter(baseURL string) Formatter {
	return Formatter{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Format normalizes a hit into an envelope and scores it.
func (f Formatter) Format(h record.Hit) result.Envelope {
	if p, ok := h.Profile(); ok {
		return f.profile(p)
	}
	if l, ok := h.Listing(); ok {
		return f.listing(l)
	}
	if a, ok := h.Achievement(); ok {
		return f.achievement(a)
	}
	return result.Envelope{ID: h.ID(), Type: h.Type(), RelevanceScore: result.BaselineScore}
}

// ProfileScore is the merge score of a profile.
func ProfileScore(p record.ProfileRecord) float64 {
	return result.BaselineScore +
		profileRatingWeight*signal(p.Rating) +
		profileCompletionWeight*signal(p.CompletionPercentage) +
		profileYearsWeight*signal(p.YearsOfExperience)
}

// ListingScore is the merge score of a listing.
func ListingScore(l record.ListingRecord) float64 {
	return result.BaselineScore +
		listingRatingWeight*signal(l.Rating) +
		listingLikesWeight*signal(float64(l.Likes)) +
		listingViewsWeight*signal(float64(l.Views))
}

// AchievementScore is the flat merge score of an achievement.
func AchievementScore(record.AchievementRecord) float64 {
	return result.BaselineScore + achievementBonus
}

// signal treats NaN, infinite and negative values as absent.
func signal(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func (f Formatter) profile(p record.ProfileRecord) result.Envelope {
	return result.Envelope{
		ID:    p.ID,
		Type:  record.Profile,
		Title: p.Name,
		SummaryFields: map[string]any{
			"headline":              p.Headline,
			"location":              p.Location,
			"availability":          p.Availability,
			"skills":                nonNil(p.Skills),
			"rating":                p.Rating,
			"completion_percentage": p.CompletionPercentage,
			"years_of_experience":   p.YearsOfExperience,
		},
		RelevanceScore: ProfileScore(p),
		SourceURL:      f.url("/profiles/", slugOr(p.Slug, p.ID)),
	}
}

func (f Formatter) listing(l record.ListingRecord) result.Envelope {
	return result.Envelope{
		ID:    l.ID,
		Type:  record.Listing,
		Title: l.Title,
		SummaryFields: map[string]any{
			"description":   excerpt(l.Description),
			"category":      l.Category,
			"price":         l.Price,
			"delivery_days": l.DeliveryDays,
			"rating":        l.Rating,
			"likes":         l.Likes,
			"views":         l.Views,
		},
		RelevanceScore: ListingScore(l),
		SourceURL:      f.url("/listings/", slugOr(l.Slug, l.ID)),
	}
}

func (f Formatter) achievement(a record.AchievementRecord) result.Envelope {
	return result.Envelope{
		ID:    a.ID,
		Type:  record.Achievement,
		Title: a.Title,
		SummaryFields: map[string]any{
			"description": excerpt(a.Description),
			"issuer":      a.Issuer,
			"year":        a.Year,
			"profile_id":  a.ProfileID,
		},
		RelevanceScore: AchievementScore(a),
		SourceURL:      f.url("/profiles/", slugOr(a.ProfileSlug, a.ProfileID)) + "#achievement-" + a.ID,
	}
}

func (f Formatter) url(path, id string) string {
	return f.baseURL + path + id
}

func slugOr(slug, id string) string {
	if slug != "" {
		return slug
	}
	return id
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= excerptLength {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:excerptLength])) + "…"
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
