package elastic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kailas-cloud/xsearch/internal/domain/search/filter"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClient_RequiresAddresses(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSearch_DecodesHits(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/listings/_search") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		_, _ = io.WriteString(w, `{"hits":{"total":{"value":12},"hits":[
			{"_id":"7","_score":3.2,"_source":{"title":"Web design","rating":5}}
		]}}`)
	})

	res, err := c.Search(context.Background(), &Query{Index: "listings", Text: "web", Limit: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Total != 12 || len(res.Hits) != 1 || res.Hits[0].ID != "7" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.Contains(string(res.Hits[0].Source), "Web design") {
		t.Errorf("Source = %s", res.Hits[0].Source)
	}
	if body["size"] != float64(5) {
		t.Errorf("size = %v", body["size"])
	}
}

func TestSearch_IndexNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"type":"index_not_found_exception"}}`)
	})

	_, err := c.Search(context.Background(), &Query{Index: "missing", Text: "x"})
	if !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestSearch_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{}`)
	})

	_, err := c.Search(context.Background(), &Query{Index: "listings", Text: "x"})
	var esErr *Error
	if !errors.As(err, &esErr) || esErr.Status != http.StatusInternalServerError {
		t.Errorf("expected *Error with status 500, got %v", err)
	}
}

func TestCount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/profiles/_count") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"count":31}`)
	})

	n, err := c.Count(context.Background(), "profiles")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 31 {
		t.Errorf("Count() = %d", n)
	}
}

func TestPing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"version":{"number":"8.15.0"}}`)
	})
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestBuildSearchBody(t *testing.T) {
	a, _ := filter.NewMatch("category", "web")
	b, _ := filter.NewMatch("category", "design")
	lower, _ := filter.NewNumeric("price", filter.OpGTE, 10)
	expr, _ := filter.NewExpression([]filter.Condition{a, b}, []filter.Condition{lower})

	body := buildSearchBody(&Query{
		Text:    "logo",
		Fields:  []string{"title^2", "description"},
		Prefix:  true,
		Filters: expr,
		Limit:   3,
	})
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	got := string(raw)

	for _, want := range []string{
		`"type":"bool_prefix"`,
		`"fields":["title^2","description"]`,
		`"minimum_should_match":1`,
		`{"term":{"category":"web"}}`,
		`{"range":{"price":{"gte":10}}}`,
		`"track_total_hits":true`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("body missing %s\n%s", want, got)
		}
	}
}

func TestBuildSearchBody_MatchAll(t *testing.T) {
	raw, _ := json.Marshal(buildSearchBody(&Query{Limit: 0}))
	if !strings.Contains(string(raw), `"match_all":{}`) {
		t.Errorf("expected match_all, got %s", raw)
	}
}
