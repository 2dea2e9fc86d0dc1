package record

import "fmt"

// Type is one of the searchable entity kinds.
type Type string

const (
	// Profile is a person's public profile.
	Profile Type = "profile"
	// Listing is a service listing offered by a profile.
	Listing Type = "listing"
	// Achievement is an achievement record attached to a profile.
	Achievement Type = "achievement"
)

// All returns every record type in enumeration order.
func All() []Type {
	return []Type{Profile, Listing, Achievement}
}

// Parse validates a type name.
func Parse(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unsupported record type %q", s)
	}
	return t, nil
}

// Valid reports whether t is a known record type.
func (t Type) Valid() bool {
	switch t {
	case Profile, Listing, Achievement:
		return true
	}
	return false
}

// Rank returns the enumeration position used to break merge ties.
func (t Type) Rank() int {
	switch t {
	case Profile:
		return 0
	case Listing:
		return 1
	case Achievement:
		return 2
	}
	return 3
}

func (t Type) String() string { return string(t) }

// ProfileRecord holds the profile fields needed for display and scoring.
type ProfileRecord struct {
	ID                   string   `json:"id"`
	Slug                 string   `json:"slug"`
	Name                 string   `json:"name"`
	Headline             string   `json:"headline"`
	Location             string   `json:"location"`
	Availability         string   `json:"availability"`
	Skills               []string `json:"skills"`
	Rating               float64  `json:"rating"`
	CompletionPercentage float64  `json:"completion_percentage"`
	YearsOfExperience    float64  `json:"years_of_experience"`
}

// ListingRecord holds the listing fields needed for display and scoring.
type ListingRecord struct {
	ID           string  `json:"id"`
	Slug         string  `json:"slug"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	Price        float64 `json:"price"`
	DeliveryDays float64 `json:"delivery_days"`
	Rating       float64 `json:"rating"`
	Likes        int64   `json:"likes"`
	Views        int64   `json:"views"`
}

// AchievementRecord holds the achievement fields needed for display.
type AchievementRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Issuer      string `json:"issuer"`
	ProfileID   string `json:"profile_id"`
	ProfileSlug string `json:"profile_slug"`
	Year        int    `json:"year"`
}

// Hit is a raw index hit: exactly one payload is set, selected by Type.
type Hit struct {
	typ         Type
	profile     *ProfileRecord
	listing     *ListingRecord
	achievement *AchievementRecord
}

// NewProfileHit wraps a profile record.
func NewProfileHit(p ProfileRecord) Hit { return Hit{typ: Profile, profile: &p} }

// NewListingHit wraps a listing record.
func NewListingHit(l ListingRecord) Hit { return Hit{typ: Listing, listing: &l} }

// NewAchievementHit wraps an achievement record.
func NewAchievementHit(a AchievementRecord) Hit { return Hit{typ: Achievement, achievement: &a} }

// Type returns the record type of the payload.
func (h Hit) Type() Type { return h.typ }

// Profile returns the profile payload.
func (h Hit) Profile() (ProfileRecord, bool) {
	if h.profile == nil {
		return ProfileRecord{}, false
	}
	return *h.profile, true
}

// Listing returns the listing payload.
func (h Hit) Listing() (ListingRecord, bool) {
	if h.listing == nil {
		return ListingRecord{}, false
	}
	return *h.listing, true
}

// Achievement returns the achievement payload.
func (h Hit) Achievement() (AchievementRecord, bool) {
	if h.achievement == nil {
		return AchievementRecord{}, false
	}
	return *h.achievement, true
}

// ID returns the identifier of the payload.
func (h Hit) ID() string {
	switch h.typ {
	case Profile:
		return h.profile.ID
	case Listing:
		return h.listing.ID
	case Achievement:
		return h.achievement.ID
	}
	return ""
}

// Title returns the displayable title of the payload.
func (h Hit) Title() string {
	switch h.typ {
	case Profile:
		return h.profile.Name
	case Listing:
		return h.listing.Title
	case Achievement:
		return h.achievement.Title
	}
	return ""
}
