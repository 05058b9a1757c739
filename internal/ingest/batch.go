package ingest

import (
	"fmt"
	"log/slog"

	"github.com/agentic-research/csvgraph/internal/graph"
)

// DefaultBatchSize is how many rows one unit of work carries.
const DefaultBatchSize = 100

// maxLineBytes bounds a single input line.
const maxLineBytes = 16 << 20

// batch is a contiguous range of data rows [start, end].
type batch struct {
	start int
	end   int
	lines []string
}

// lineSource is satisfied by *bufio.Scanner.
type lineSource interface {
	Scan() bool
	Text() string
	Err() error
}

// partition reads src sequentially and submits every full batch of size
// rows, then the final partial batch. It returns the number of rows read.
func partition(src lineSource, size int, submit func(*batch)) (int, error) {
	rows := 0
	start := 0
	lines := make([]string, 0, size)
	for src.Scan() {
		lines = append(lines, src.Text())
		rows++
		if len(lines) == size {
			submit(&batch{start: start, end: rows - 1, lines: lines})
			start = rows
			lines = make([]string, 0, size)
		}
	}
	if len(lines) > 0 {
		submit(&batch{start: start, end: rows - 1, lines: lines})
	}
	return rows, src.Err()
}

// batchResult is the outcome of one batch. A nil err means it committed.
type batchResult struct {
	rows       int
	statements int
	err        error
}

// processBatch tokenizes and validates every row outside the store lock,
// then writes the whole batch under a single Commit.
func (s *schemaSnapshot) processBatch(store *graph.Store, b *batch, logger *slog.Logger) batchResult {
	width := len(s.properties)
	rows := make([][]string, len(b.lines))
	for i, line := range b.lines {
		fields := SplitRow(line)
		if len(fields) != width {
			return batchResult{err: &RowShapeError{Row: b.start + i, Got: len(fields), Expected: width}}
		}
		rows[i] = fields
	}

	var written int
	err := store.Commit(func(tx *graph.Tx) error {
		if s.rowType != "" {
			tx.DeclareClass(s.rowType)
		}
		for i, fields := range rows {
			subject := s.resource(b.start + i)
			if s.rowType != "" {
				tx.Add(graph.Statement{Subject: subject, Predicate: graph.RDFType, Object: s.rowType})
			}
			for j, value := range fields {
				meta := s.meta[j]
				if meta.IsSkipped {
					continue
				}
				tx.Add(graph.Statement{Subject: subject, Predicate: s.properties[j], Object: s.object(meta, value)})
			}
		}
		written = tx.Added()
		return nil
	})
	if err != nil {
		return batchResult{statements: written, err: fmt.Errorf("commit rows %d-%d: %w", b.start, b.end, err)}
	}

	logger.Debug("batch committed", "start", b.start, "end", b.end, "statements", written)
	return batchResult{rows: len(rows), statements: written}
}
