package result

import "github.com/kailas-cloud/xsearch/internal/domain/search/record"

// BaselineScore is the relevance every envelope starts from.
const BaselineScore = 1.0

// Envelope is a matched record normalized to a common shape.
type Envelope struct {
	ID             string         `json:"id"`
	Type           record.Type    `json:"type"`
	Title          string         `json:"title"`
	SummaryFields  map[string]any `json:"summary_fields"`
	RelevanceScore float64        `json:"relevance_score"`
	SourceURL      string         `json:"source_url"`
}

// Pagination describes the merged page.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
	LastPage int `json:"last_page"`
}

// NewPagination computes LastPage = ceil(total / pageSize).
func NewPagination(page, pageSize, total int) Pagination {
	last := 0
	if pageSize > 0 {
		last = (total + pageSize - 1) / pageSize
	}
	return Pagination{Page: page, PageSize: pageSize, Total: total, LastPage: last}
}

// IndexFailure reports a record type that contributed no results because its index failed.
type IndexFailure struct {
	Type   record.Type `json:"type"`
	Reason string      `json:"reason"`
}

// Response is the aggregated cross-type search result.
type Response struct {
	QueryText       string                     `json:"query"`
	TotalCount      int                        `json:"total_count"`
	ResultsByType   map[record.Type][]Envelope `json:"results_by_type"`
	CombinedPage    []Envelope                 `json:"combined_page"`
	Pagination      Pagination                 `json:"pagination"`
	PartialFailures []IndexFailure             `json:"partial_failures,omitempty"`
}

// Degraded reports whether any requested type failed.
func (r *Response) Degraded() bool { return len(r.PartialFailures) > 0 }

// Stats is the cached summary of searchable records.
type Stats struct {
	Counts         map[record.Type]int `json:"counts"`
	Total          int                 `json:"total"`
	PopularQueries []Popular           `json:"popular_queries"`
}

// Popular is a query and how many times it was searched today.
type Popular struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}
