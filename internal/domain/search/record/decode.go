package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SkillSeparator joins profile skills inside a flat field map.
const SkillSeparator = ","

// Decode builds a typed hit from a flat field map (hash-backed indexes).
// Missing or malformed numeric fields decode as zero.
func Decode(t Type, id string, fields map[string]string) (Hit, error) {
	switch t {
	case Profile:
		return NewProfileHit(ProfileRecord{
			ID:                   id,
			Slug:                 fields["slug"],
			Name:                 fields["name"],
			Headline:             fields["headline"],
			Location:             fields["location"],
			Availability:         fields["availability"],
			Skills:               splitList(fields["skills"]),
			Rating:               parseFloat(fields["rating"]),
			CompletionPercentage: parseFloat(fields["completion_percentage"]),
			YearsOfExperience:    parseFloat(fields["years_of_experience"]),
		}), nil
	case Listing:
		return NewListingHit(ListingRecord{
			ID:           id,
			Slug:         fields["slug"],
			Title:        fields["title"],
			Description:  fields["description"],
			Category:     fields["category"],
			Price:        parseFloat(fields["price"]),
			DeliveryDays: parseFloat(fields["delivery_days"]),
			Rating:       parseFloat(fields["rating"]),
			Likes:        parseInt(fields["likes"]),
			Views:        parseInt(fields["views"]),
		}), nil
	case Achievement:
		return NewAchievementHit(AchievementRecord{
			ID:          id,
			Title:       fields["title"],
			Description: fields["description"],
			Issuer:      fields["issuer"],
			ProfileID:   fields["profile_id"],
			ProfileSlug: fields["profile_slug"],
			Year:        int(parseInt(fields["year"])),
		}), nil
	}
	return Hit{}, fmt.Errorf("unsupported record type %q", t)
}

// DecodeJSON builds a typed hit from a JSON document (document-backed indexes).
// A non-empty id overrides the id stored in the document.
func DecodeJSON(t Type, id string, raw []byte) (Hit, error) {
	switch t {
	case Profile:
		var p ProfileRecord
		if err := json.Unmarshal(raw, &p); err != nil {
			return Hit{}, fmt.Errorf("decode profile %s: %w", id, err)
		}
		if id != "" {
			p.ID = id
		}
		return NewProfileHit(p), nil
	case Listing:
		var l ListingRecord
		if err := json.Unmarshal(raw, &l); err != nil {
			return Hit{}, fmt.Errorf("decode listing %s: %w", id, err)
		}
		if id != "" {
			l.ID = id
		}
		return NewListingHit(l), nil
	case Achievement:
		var a AchievementRecord
		if err := json.Unmarshal(raw, &a); err != nil {
			return Hit{}, fmt.Errorf("decode achievement %s: %w", id, err)
		}
		if id != "" {
			a.ID = id
		}
		return NewAchievementHit(a), nil
	}
	return Hit{}, fmt.Errorf("unsupported record type %q", t)
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return int64(parseFloat(s))
	}
	return n
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, SkillSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
