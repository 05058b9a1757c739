package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/agentic-research/csvgraph/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	var lines []string
	for i := 0; i < 250; i++ {
		lines = append(lines, fmt.Sprintf("row%d", i))
	}
	sc := bufio.NewScanner(strings.NewReader(strings.Join(lines, "\n")))

	var got []*batch
	rows, err := partition(sc, 100, func(b *batch) { got = append(got, b) })
	require.NoError(t, err)
	assert.Equal(t, 250, rows)
	require.Len(t, got, 3)

	bounds := [][2]int{{0, 99}, {100, 199}, {200, 249}}
	for i, b := range got {
		assert.Equal(t, bounds[i][0], b.start)
		assert.Equal(t, bounds[i][1], b.end)
		assert.Len(t, b.lines, b.end-b.start+1)
		assert.Equal(t, fmt.Sprintf("row%d", b.start), b.lines[0])
	}
	// Each batch owns its lines.
	got[0].lines[0] = "mutated"
	assert.Equal(t, "row100", got[1].lines[0])
}

func TestPartition_ExactMultiple(t *testing.T) {
	sc := bufio.NewScanner(strings.NewReader("a\nb\nc\nd\n"))
	var n int
	rows, err := partition(sc, 2, func(*batch) { n++ })
	require.NoError(t, err)
	assert.Equal(t, 4, rows)
	assert.Equal(t, 2, n, "no trailing empty batch")
}

type failingSource struct{ n int }

func (f *failingSource) Scan() bool   { f.n++; return f.n <= 3 }
func (f *failingSource) Text() string { return "x" }
func (f *failingSource) Err() error   { return io.ErrUnexpectedEOF }

func TestPartition_ReadError(t *testing.T) {
	var n int
	rows, err := partition(&failingSource{}, 2, func(*batch) { n++ })
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, n, "rows read before the error are still submitted")
}

func TestProcessBatch_ValidatesBeforeWriting(t *testing.T) {
	snap := &schemaSnapshot{
		prefix:     testPrefix,
		properties: []graph.IRI{testPrefix + "A", testPrefix + "B"},
		meta:       []PropertyMetadata{defaultMetadata(), defaultMetadata()},
	}
	store := graph.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	br := snap.processBatch(store, &batch{start: 10, end: 12, lines: []string{"1,2", "3,4", "5"}}, logger)
	var shape *RowShapeError
	require.True(t, errors.As(br.err, &shape))
	assert.Equal(t, 12, shape.Row)
	assert.Equal(t, 13, shape.Line())
	assert.Equal(t, 0, store.Len(), "a rejected batch writes nothing")

	br = snap.processBatch(store, &batch{start: 10, end: 11, lines: []string{"1,2", "3,4"}}, logger)
	require.NoError(t, br.err)
	assert.Equal(t, 2, br.rows)
	assert.Equal(t, 4, br.statements)
	subjects := map[graph.IRI]bool{}
	for _, st := range store.Statements() {
		subjects[st.Subject] = true
	}
	assert.Equal(t, map[graph.IRI]bool{testPrefix + "res10": true, testPrefix + "res11": true}, subjects)
}

func TestWorkerPool_RecoversPanics(t *testing.T) {
	pool := newWorkerPool(2, func(b *batch) batchResult {
		if b.start == 1 {
			panic("bad batch")
		}
		return batchResult{rows: 1, statements: 3}
	})
	var jobs []*job
	for i := 0; i < 4; i++ {
		jobs = append(jobs, pool.submit(&batch{start: i, end: i}))
	}
	pool.shutdown()
	<-pool.done()

	res := &Result{}
	err := aggregate(jobs, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic: bad batch")
	assert.Equal(t, 3, res.CommittedBatches)
	assert.Equal(t, 9, res.Statements)
}
