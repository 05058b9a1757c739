package sink

import (
	"context"
	"fmt"

	"github.com/agentic-research/csvgraph/internal/graph"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS statements (
	id         BIGSERIAL PRIMARY KEY,
	run_id     TEXT NOT NULL,
	subject    TEXT NOT NULL,
	predicate  TEXT NOT NULL,
	object     TEXT NOT NULL,
	datatype   TEXT,
	is_literal BOOLEAN NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_statements_run ON statements(run_id);
`

// PostgresSink bulk-loads statements with COPY. Rows are tagged with RunID
// so several conversions can share a table.
type PostgresSink struct {
	pool  *pgxpool.Pool
	RunID string
}

// OpenPostgres connects to dsn and ensures the statements table exists.
func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*PostgresSink, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

func (p *PostgresSink) Write(ctx context.Context, s *graph.Store) error {
	sts := s.Statements()
	src := pgx.CopyFromSlice(len(sts), func(i int) ([]any, error) {
		r := flatten(sts[i])
		return []any{p.RunID, r.subject, r.predicate, r.object, r.datatype, r.isLiteral}, nil
	})
	n, err := p.pool.CopyFrom(ctx,
		pgx.Identifier{"statements"},
		[]string{"run_id", "subject", "predicate", "object", "datatype", "is_literal"},
		src,
	)
	if err != nil {
		return fmt.Errorf("copy statements: %w", err)
	}
	if int(n) != len(sts) {
		return fmt.Errorf("copy statements: wrote %d of %d rows", n, len(sts))
	}
	return nil
}

// Count returns how many rows the table holds for runID.
func (p *PostgresSink) Count(ctx context.Context, runID string) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx, `SELECT count(*) FROM statements WHERE run_id = $1`, runID).Scan(&n)
	return n, err
}

func (p *PostgresSink) Close() {
	p.pool.Close()
}

var _ Sink = (*PostgresSink)(nil)
