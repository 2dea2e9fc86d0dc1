package index

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/xsearch/internal/db"
	"github.com/kailas-cloud/xsearch/internal/domain/search/record"
)

// indexManager is the consumer interface for FT index lifecycle (ISP).
type indexManager interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// EnsureRedis creates the FT indexes that do not exist yet.
// names maps a record type to its index name; missing entries use DefaultName.
func EnsureRedis(ctx context.Context, m indexManager, names map[record.Type]string, logger *zap.Logger) error {
	for _, t := range record.All() {
		name := names[t]
		if name == "" {
			name = DefaultName(t)
		}

		exists, err := m.IndexExists(ctx, name)
		if err != nil {
			return fmt.Errorf("check index %s: %w", name, err)
		}
		if exists {
			continue
		}

		def, err := Definition(t, name)
		if err != nil {
			return fmt.Errorf("build index %s: %w", name, err)
		}
		if err := m.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
			return fmt.Errorf("create index %s: %w", name, err)
		}
		logger.Info("Index created", zap.String("index", name), zap.String("type", t.String()))
	}
	return nil
}
