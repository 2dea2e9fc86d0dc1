package health

import "context"

// DBPinger checks key-value store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// IndexChecker checks that a search index answers queries.
type IndexChecker interface {
	Count(ctx context.Context) (int, error)
}
