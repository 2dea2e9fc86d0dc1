package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterSearchMetrics_Idempotent(t *testing.T) {
	RegisterSearchMetrics()
	RegisterSearchMetrics()

	IndexFailuresTotal.WithLabelValues("listing", "timeout").Inc()
	n, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "xsearch_index_failures_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n == 0 {
		t.Error("expected xsearch_index_failures_total to be registered")
	}
}

func TestSearchMetrics_Labels(t *testing.T) {
	before := testutil.ToFloat64(CacheRequestsTotal.WithLabelValues("search", "hit"))
	CacheRequestsTotal.WithLabelValues("search", "hit").Inc()
	if got := testutil.ToFloat64(CacheRequestsTotal.WithLabelValues("search", "hit")) - before; got != 1 {
		t.Errorf("cache hit delta = %v", got)
	}

	IndexQueryDuration.WithLabelValues("profile", "query").Observe(0.02)
	if n := testutil.CollectAndCount(IndexQueryDuration); n == 0 {
		t.Error("expected index query duration observations")
	}

	const want = `
# HELP xsearch_recorder_dropped_total Background recording jobs dropped because the queue was full
# TYPE xsearch_recorder_dropped_total counter
xsearch_recorder_dropped_total 0
`
	if err := testutil.CollectAndCompare(RecorderDroppedTotal, strings.NewReader(want)); err != nil {
		t.Errorf("unexpected exposition: %v", err)
	}
}
