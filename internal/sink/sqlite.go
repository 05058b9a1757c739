package sink

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/agentic-research/csvgraph/internal/graph"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS statements (
	run_id     TEXT NOT NULL,
	subject    TEXT NOT NULL,
	predicate  TEXT NOT NULL,
	object     TEXT NOT NULL,
	datatype   TEXT,
	is_literal INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS prefixes (
	name TEXT PRIMARY KEY,
	uri  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS classes (
	iri TEXT PRIMARY KEY
);
`

// SQLiteSink writes statements into a SQLite database file, committing
// every BatchSize rows. Rows are tagged with RunID; writing a run ID that
// is already present replaces its rows.
type SQLiteSink struct {
	db        *sql.DB
	BatchSize int
	RunID     string
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// Bulk load tuning
	for _, pragma := range []string{"PRAGMA synchronous = OFF", "PRAGMA journal_mode = MEMORY"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteSink{db: db, BatchSize: 10000}, nil
}

// DB exposes the underlying handle for queries.
func (w *SQLiteSink) DB() *sql.DB { return w.db }

func (w *SQLiteSink) Write(ctx context.Context, s *graph.Store) error {
	tx, ins, err := w.beginTx(ctx)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM statements WHERE run_id = ?`, w.RunID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear run %q: %w", w.RunID, err)
	}
	count := 0
	for _, st := range s.Statements() {
		r := flatten(st)
		if _, err := ins.ExecContext(ctx, w.RunID, r.subject, r.predicate, r.object, r.datatype, r.isLiteral); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert statement: %w", err)
		}
		count++
		if w.BatchSize > 0 && count >= w.BatchSize {
			if err := commitTx(tx, ins); err != nil {
				return err
			}
			if tx, ins, err = w.beginTx(ctx); err != nil {
				return err
			}
			count = 0
		}
	}

	if err := writeSQLiteMeta(ctx, tx, s); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := commitTx(tx, ins); err != nil {
		return err
	}

	// Indices after bulk load
	for _, ddl := range []string{
		`CREATE INDEX IF NOT EXISTS idx_statements_sp ON statements(subject, predicate)`,
		`CREATE INDEX IF NOT EXISTS idx_statements_run ON statements(run_id)`,
	} {
		if _, err := w.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// Count returns how many rows the table holds for runID.
func (w *SQLiteSink) Count(ctx context.Context, runID string) (int, error) {
	var n int
	err := w.db.QueryRowContext(ctx, `SELECT count(*) FROM statements WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}

func (w *SQLiteSink) beginTx(ctx context.Context) (*sql.Tx, *sql.Stmt, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	ins, err := tx.PrepareContext(ctx, `INSERT INTO statements (run_id, subject, predicate, object, datatype, is_literal) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return nil, nil, err
	}
	return tx, ins, nil
}

func commitTx(tx *sql.Tx, ins *sql.Stmt) error {
	_ = ins.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func writeSQLiteMeta(ctx context.Context, tx *sql.Tx, s *graph.Store) error {
	prefixes := s.Prefixes()
	names := make([]string, 0, len(prefixes))
	for name := range prefixes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO prefixes (name, uri) VALUES (?, ?)`, name, prefixes[name]); err != nil {
			return fmt.Errorf("insert prefix %s: %w", name, err)
		}
	}
	for _, c := range s.Classes() {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO classes (iri) VALUES (?)`, string(c)); err != nil {
			return fmt.Errorf("insert class %s: %w", c, err)
		}
	}
	return nil
}

func (w *SQLiteSink) Close() error {
	return w.db.Close()
}

var _ Sink = (*SQLiteSink)(nil)
