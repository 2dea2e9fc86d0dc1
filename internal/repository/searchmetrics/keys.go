package searchmetrics

import (
	"strings"
	"time"

	"github.com/kailas-cloud/xsearch/internal/domain"
)

// Counter families.
const (
	nameSearches    = "searches"
	nameCache       = "cache"
	nameResults     = "results"
	nameQueryLength = "query_length"
	nameSuggestions = "suggestions"
	categoryTotal   = "total"
	categoryAll     = "all"
)

// Average names.
const (
	AvgExecutionTime  = "execution_time"
	AvgResultCount    = "result_count"
	AvgQueryLength    = "query_length"
	AvgWordCount      = "word_count"
	AvgSuggestionTime = "suggestion_time"
)

var keyPrefix = domain.KeyPrefix + "metrics:"

func dayOf(t time.Time) string { return t.UTC().Format(time.DateOnly) }

func hourOf(t time.Time) string { return t.UTC().Format("15") }

// counterKey is xsearch:metrics:{name}:{category}:{YYYY-MM-DD}.
func counterKey(name, category, day string) string {
	return keyPrefix + name + ":" + category + ":" + day
}

// hourKey is counterKey with an :HH suffix.
func hourKey(name, category, day, hour string) string {
	return counterKey(name, category, day) + ":" + hour
}

// avgKey is xsearch:metrics:avg:{name}:{YYYY-MM-DD}.
func avgKey(name, day string) string {
	return keyPrefix + "avg:" + name + ":" + day
}

// keyDate finds the date segment of a metric key.
func keyDate(k string) (time.Time, bool) {
	for _, seg := range strings.Split(strings.TrimPrefix(k, keyPrefix), ":") {
		if len(seg) != len(time.DateOnly) {
			continue
		}
		if d, err := time.Parse(time.DateOnly, seg); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func resultBucket(n int) string {
	switch {
	case n == 0:
		return "empty"
	case n < 10:
		return "few"
	default:
		return "many"
	}
}

func lengthBucket(n int) string {
	switch {
	case n < 5:
		return "short"
	case n < 20:
		return "medium"
	default:
		return "long"
	}
}

func outcome(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
