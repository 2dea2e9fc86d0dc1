package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates some indexes are failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the store or every index is down.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// DefaultCheckTimeout bounds each component check.
const DefaultCheckTimeout = 2 * time.Second

const databaseCheck = "database"

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db      DBPinger
	indexes map[string]IndexChecker
	timeout time.Duration
}

// New creates a Service. Index checks are reported as "index:{name}".
func New(db DBPinger, indexes map[string]IndexChecker) *Service {
	return &Service{db: db, indexes: indexes, timeout: DefaultCheckTimeout}
}

// Check runs all component checks concurrently.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(s.indexes)+1)
	)
	set := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			checks[name] = CheckError
			return
		}
		checks[name] = CheckOK
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cctx, cancel := context.WithTimeout(gctx, s.timeout)
		defer cancel()
		set(databaseCheck, s.db.Ping(cctx))
		return nil
	})
	for name, idx := range s.indexes {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()
			_, err := idx.Count(cctx)
			set("index:"+name, err)
			return nil
		})
	}
	_ = g.Wait()

	return Report{Status: aggregate(checks), Checks: checks}
}

func aggregate(checks map[string]CheckResult) Status {
	if checks[databaseCheck] == CheckError {
		return Unhealthy
	}
	total, failed := 0, 0
	for name, v := range checks {
		if name == databaseCheck {
			continue
		}
		total++
		if v == CheckError {
			failed++
		}
	}
	switch {
	case failed == 0:
		return Healthy
	case failed == total:
		return Unhealthy
	default:
		return Degraded
	}
}
