// Package elastic is a full-text backend on Elasticsearch 8 via go-elasticsearch.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Op names used in Error.
const (
	OpInfo   = "info"
	OpSearch = "search"
	OpCount  = "count"
)

// ErrIndexNotFound is returned when the target index does not exist.
var ErrIndexNotFound = errors.New("elastic: index not found")

// Error wraps a failed request with the operation name.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("elastic %s (status %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("elastic %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Config holds connection parameters.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	APIKey    string
	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Client runs searches against Elasticsearch indexes.
type Client struct {
	es *elasticsearch.Client
}

// NewClient creates a client. No request is made until first use.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("addresses is required")
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Client{es: es}, nil
}

// Ping checks the cluster responds.
func (c *Client) Ping(ctx context.Context) error {
	res, err := esapi.InfoRequest{}.Do(ctx, c.es)
	if err != nil {
		return &Error{Op: OpInfo, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		return &Error{Op: OpInfo, Status: res.StatusCode, Err: errors.New(res.String())}
	}
	return nil
}

// WaitForReady polls Ping until the cluster responds or timeout expires.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := c.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for elasticsearch: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Search runs a query and returns raw hits.
func (c *Client) Search(ctx context.Context, q *Query) (*Result, error) {
	if q.Index == "" {
		return nil, errors.New("index is required")
	}
	body, err := json.Marshal(buildSearchBody(q))
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{q.Index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return nil, &Error{Op: OpSearch, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError(OpSearch, res)
	}

	var payload searchResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := &Result{Total: payload.Hits.Total.Value, Hits: make([]Hit, 0, len(payload.Hits.Hits))}
	for _, h := range payload.Hits.Hits {
		out.Hits = append(out.Hits, Hit{ID: h.ID, Score: h.Score, Source: h.Source})
	}
	return out, nil
}

// Count returns the number of documents in an index.
func (c *Client) Count(ctx context.Context, index string) (int, error) {
	req := esapi.CountRequest{Index: []string{index}}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return 0, &Error{Op: OpCount, Err: err}
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, responseError(OpCount, res)
	}

	var payload struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return payload.Count, nil
}

func responseError(op string, res *esapi.Response) error {
	if res.StatusCode == http.StatusNotFound {
		return ErrIndexNotFound
	}
	return &Error{Op: op, Status: res.StatusCode, Err: errors.New(res.String())}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Score  float64         `json:"_score"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}
