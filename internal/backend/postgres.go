package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/rebeliceyang/lazysearch/internal/catalog"
	"github.com/rebeliceyang/lazysearch/internal/domain"
	"go.uber.org/zap"
)

// IDQuerier runs a statement whose first column is a record id
type IDQuerier interface {
	QueryIDs(ctx context.Context, sql string, args ...interface{}) ([]int64, error)
}

// Postgres searches entity tables in a PostgreSQL database
type Postgres struct {
	db      IDQuerier
	builder *Builder
	timeout time.Duration
	logger  *zap.Logger
}

// NewPostgres creates a backend over db. A zero timeout disables the
// per-search deadline.
func NewPostgres(db IDQuerier, cat catalog.Catalog, schema string, timeout time.Duration, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{
		db:      db,
		builder: NewBuilder(cat, schema),
		timeout: timeout,
		logger:  logger,
	}
}

// Search returns the ids of the entityType records matching d. Any failure,
// whether building the statement or running it, is returned as is.
func (p *Postgres) Search(ctx context.Context, entityType string, d domain.Domain) ([]int64, error) {
	sql, args, err := p.builder.BuildSearch(ctx, entityType, d)
	if err != nil {
		p.logger.Debug("domain rejected", zap.String("entity_type", entityType), zap.Error(err))
		return nil, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	ids, err := p.db.QueryIDs(ctx, sql, args...)
	if err != nil {
		p.logger.Warn("search failed",
			zap.String("entity_type", entityType),
			zap.String("sql", sql),
			zap.Error(err))
		return nil, fmt.Errorf("search on %s failed: %w", entityType, err)
	}

	p.logger.Debug("search executed",
		zap.String("entity_type", entityType),
		zap.String("sql", sql),
		zap.Int("records", len(ids)),
		zap.Duration("duration", time.Since(start)))
	return ids, nil
}
