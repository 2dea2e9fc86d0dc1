package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/xsearch/internal/db/memory"
	"github.com/kailas-cloud/xsearch/internal/domain/search/key"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newOutcomes() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "cache_total"}, []string{"namespace", "result"})
}

type payload struct {
	Items []string `json:"items"`
}

func TestCache_RoundTripAndExpiry(t *testing.T) {
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := memory.New(memory.WithClock(clk.now))
	outcomes := newOutcomes()
	c := New(store, Config{Enabled: true}, outcomes, zap.NewNop())
	ctx := context.Background()
	k := key.Prefix(key.Suggest) + "abc"

	c.Put(ctx, key.Suggest, k, payload{Items: []string{"web design"}})

	clk.advance(2*time.Hour - time.Second)
	var got payload
	if !c.Get(ctx, key.Suggest, k, &got) {
		t.Fatal("expected hit before TTL")
	}
	if len(got.Items) != 1 || got.Items[0] != "web design" {
		t.Errorf("Get() = %+v", got)
	}

	clk.advance(time.Second)
	if c.Get(ctx, key.Suggest, k, &got) {
		t.Fatal("expected miss after TTL")
	}

	if v := testutil.ToFloat64(outcomes.WithLabelValues("suggest", "hit")); v != 1 {
		t.Errorf("hit counter = %v", v)
	}
	if v := testutil.ToFloat64(outcomes.WithLabelValues("suggest", "miss")); v != 1 {
		t.Errorf("miss counter = %v", v)
	}
}

func TestCache_DefaultTTLs(t *testing.T) {
	c := New(memory.New(), Config{Enabled: true, TTLs: map[key.Namespace]time.Duration{key.Stats: 0}}, nil, zap.NewNop())
	if c.TTL(key.Search) != time.Hour || c.TTL(key.Suggest) != 2*time.Hour || c.TTL(key.Stats) != 30*time.Minute {
		t.Errorf("unexpected TTLs: %v %v %v", c.TTL(key.Search), c.TTL(key.Suggest), c.TTL(key.Stats))
	}

	c = New(memory.New(), Config{TTLs: map[key.Namespace]time.Duration{key.Search: time.Minute}}, nil, zap.NewNop())
	if c.TTL(key.Search) != time.Minute {
		t.Errorf("override ignored: %v", c.TTL(key.Search))
	}
}

func TestCache_Disabled(t *testing.T) {
	store := memory.New()
	c := New(store, Config{Enabled: false}, nil, zap.NewNop())
	ctx := context.Background()

	c.Put(ctx, key.Search, "k", payload{})
	if store.Len() != 0 {
		t.Error("Put must be a no-op when disabled")
	}
	_ = store.Set(ctx, "k", []byte(`{}`))
	var got payload
	if c.Get(ctx, key.Search, "k", &got) {
		t.Error("Get must miss when disabled")
	}
	if c.Enabled() {
		t.Error("Enabled() = true")
	}
}

func TestCache_FailOpen(t *testing.T) {
	outcomes := newOutcomes()
	c := New(&failingStore{}, Config{Enabled: true}, outcomes, zap.NewNop())
	ctx := context.Background()

	var got payload
	if c.Get(ctx, key.Search, "k", &got) {
		t.Error("expected miss on backend failure")
	}
	c.Put(ctx, key.Search, "k", payload{}) // must not panic or block

	if v := testutil.ToFloat64(outcomes.WithLabelValues("search", "error")); v != 2 {
		t.Errorf("error counter = %v, want 2", v)
	}
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	store := memory.New()
	c := New(store, Config{Enabled: true}, nil, zap.NewNop())
	ctx := context.Background()

	_ = store.Set(ctx, "k", []byte("not json"))
	var got payload
	if c.Get(ctx, key.Search, "k", &got) {
		t.Error("expected miss for undecodable entry")
	}
}

func TestCache_FlushByPrefix(t *testing.T) {
	store := memory.New()
	c := New(store, Config{Enabled: true}, nil, zap.NewNop())
	ctx := context.Background()

	c.Put(ctx, key.Search, key.Prefix(key.Search)+"a", 1)
	c.Put(ctx, key.Search, key.Prefix(key.Search)+"b", 2)
	c.Put(ctx, key.Stats, key.ForStats(), 3)
	_ = store.Set(ctx, "xsearch:metrics:searches:total:2024-01-01", []byte("4"))

	n, err := c.Flush(ctx, "search")
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n != 2 {
		t.Errorf("Flush(search) = %d, want 2", n)
	}

	n, _ = c.Flush(ctx, "")
	if n != 1 {
		t.Errorf("Flush(\"\") = %d, want 1", n)
	}
	if store.Len() != 1 {
		t.Errorf("non-cache keys must survive, Len() = %d", store.Len())
	}
}

func TestCache_FlushScanErrorKeepsKeys(t *testing.T) {
	store := memory.New()
	c := New(scanFailingStore{store}, Config{Enabled: true}, nil, zap.NewNop())
	ctx := context.Background()

	c.Put(ctx, key.Search, key.Prefix(key.Search)+"a", 1)
	_ = store.Set(ctx, "xsearch:listing:42", []byte(`{"title":"Logo design"}`))
	_ = store.Set(ctx, "xsearch:metrics:searches:total:2024-01-01", []byte("4"))

	n, err := c.Flush(ctx, "search")
	if err == nil {
		t.Fatal("expected scan error")
	}
	if n != 0 {
		t.Errorf("Flush() = %d, want 0", n)
	}
	if store.Len() != 3 {
		t.Errorf("failed scan must delete nothing, Len() = %d", store.Len())
	}
	if _, err := store.Get(ctx, "xsearch:listing:42"); err != nil {
		t.Errorf("record lost: %v", err)
	}
}

func TestCache_FlushScanErrorSkipsDelete(t *testing.T) {
	fs := &failingStore{}
	c := New(fs, Config{Enabled: true}, nil, zap.NewNop())

	if _, err := c.Flush(context.Background(), ""); !errors.Is(err, errBackend) {
		t.Fatalf("Flush() error = %v, want %v", err, errBackend)
	}
	if fs.delCalls != 0 {
		t.Errorf("delCalls = %d, want 0", fs.delCalls)
	}
}

func TestCache_FlushPrefixIsLiteral(t *testing.T) {
	store := memory.New()
	c := New(store, Config{Enabled: true}, nil, zap.NewNop())
	ctx := context.Background()

	base := key.Prefix(key.Search)
	c.Put(ctx, key.Search, base+"[x]1", 1)
	c.Put(ctx, key.Search, base+"x1", 2)
	c.Put(ctx, key.Search, base+"a*b", 3)
	c.Put(ctx, key.Search, base+"axb", 4)

	tests := []struct {
		prefix string
		want   int
	}{
		{"search:[x]", 1},
		{"search:a*", 1},
		{"search:?", 0},
	}
	for _, tt := range tests {
		n, err := c.Flush(ctx, tt.prefix)
		if err != nil {
			t.Fatalf("Flush(%q): %v", tt.prefix, err)
		}
		if n != tt.want {
			t.Errorf("Flush(%q) = %d, want %d", tt.prefix, n, tt.want)
		}
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
}
