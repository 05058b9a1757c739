package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agentic-research/csvgraph/internal/graph"
	"github.com/agentic-research/csvgraph/internal/logging"
	"github.com/agentic-research/csvgraph/internal/metrics"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/uuid"
)

// DefaultPrefix is the namespace used when none is configured.
const DefaultPrefix = "http://example.org/csv#"

// State is the converter lifecycle position.
type State int

const (
	StateIdle State = iota
	StateInitialized
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ConverterConfig controls naming and batching.
type ConverterConfig struct {
	Prefix    string // namespace for properties and row resources
	RowType   string // rdf:type for every row; empty for none
	BatchSize int    // rows per batch (default 100)
}

// DefaultConverterConfig returns the defaults: example.org prefix, no row
// type, batches of 100 rows.
func DefaultConverterConfig() ConverterConfig {
	return ConverterConfig{
		Prefix:    DefaultPrefix,
		BatchSize: DefaultBatchSize,
	}
}

// Converter turns a header plus data rows into statements in a graph.Store.
// Each Converter owns its own store and schema; several may run side by side.
type Converter struct {
	// FS is where file paths are opened. Nil means the host filesystem.
	FS billy.Filesystem
	// Metrics, when set, records batch, lock and run metrics.
	Metrics *metrics.Collector
	// Logger is used when the context passed to ReadInput carries none.
	Logger *slog.Logger

	mu         sync.Mutex
	state      State
	prefix     string
	rowType    graph.IRI
	batchSize  int
	headers    []string
	properties []graph.IRI
	meta       []PropertyMetadata
	store      *graph.Store
	last       *Result
}

func NewConverter(cfg ConverterConfig) *Converter {
	c := &Converter{
		prefix:    cfg.Prefix,
		batchSize: cfg.BatchSize,
		store:     graph.NewStore(),
	}
	if c.prefix == "" {
		c.prefix = DefaultPrefix
	}
	if c.batchSize <= 0 {
		c.batchSize = DefaultBatchSize
	}
	c.rowType = c.resolveRowType(cfg.RowType)
	return c
}

// State returns the current lifecycle state.
func (c *Converter) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Prefix returns the namespace prefix.
func (c *Converter) Prefix() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prefix
}

// SetPrefix changes the namespace prefix. Properties are named when the
// schema is initialized, so the prefix can only change while idle.
func (c *Converter) SetPrefix(p string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return fmt.Errorf("%w: prefix is fixed once the schema is initialized", ErrFrozen)
	}
	c.prefix = p
	return nil
}

// RowType returns the rdf:type given to every row, or "" for none.
func (c *Converter) RowType() graph.IRI {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rowType
}

// SetRowType sets the rdf:type given to every row. A blank value disables
// it; a value not starting with "http" is taken relative to the prefix.
func (c *Converter) SetRowType(t string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle && c.state != StateInitialized {
		return fmt.Errorf("%w: converter is %s", ErrFrozen, c.state)
	}
	rt := c.resolveRowType(t)
	if rt != "" {
		if _, err := graph.NewIRI(string(rt)); err != nil {
			return fmt.Errorf("%w: row type: %v", ErrInvalidIRI, err)
		}
	}
	c.rowType = rt
	return nil
}

func (c *Converter) resolveRowType(t string) graph.IRI {
	t = strings.TrimSpace(t)
	switch {
	case t == "":
		return ""
	case strings.HasPrefix(t, "http"):
		return graph.IRI(t)
	default:
		return graph.IRI(c.prefix + t)
	}
}

// BatchSize returns the configured rows per batch.
func (c *Converter) BatchSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batchSize
}

// Store returns the graph store of the current model.
func (c *Converter) Store() *graph.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store
}

// LastResult returns the result of the most recent run, or nil.
func (c *Converter) LastResult() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// ClearModel discards the store, properties and metadata and returns the
// converter to idle. Prefix, row type and batch size are kept.
// A run still in flight keeps writing into the store it started with.
func (c *Converter) ClearModel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = graph.NewStore()
	c.headers = nil
	c.properties = nil
	c.meta = nil
	c.state = StateIdle
}

// ReadInputFile opens path and runs ReadInput on it.
func (c *Converter) ReadInputFile(ctx context.Context, path string, threads int) (*Result, error) {
	if err := c.checkRunnable(threads); err != nil {
		return &Result{Err: err, ErrorMessage: err.Error()}, err
	}
	f, err := c.open(path)
	if err != nil {
		return c.finish(ctx, &Result{RunID: uuid.NewString()}, time.Now(), err)
	}
	defer func() { _ = f.Close() }() // read-only
	return c.ReadInput(ctx, f, threads)
}

// ReadInput converts r, whose first line is the header, into statements.
// The header line is consumed but the schema must already be initialized.
// threads must be positive; otherwise ErrThreads is returned and the
// converter state is unchanged.
//
// All submitted batches run to completion; the first failure in submission
// order becomes the returned error. Batches that committed before a failure
// stay in the store, so after a failed run call ClearModel before reuse.
func (c *Converter) ReadInput(ctx context.Context, r io.Reader, threads int) (*Result, error) {
	if err := checkThreads(threads); err != nil {
		return &Result{Err: err, ErrorMessage: err.Error()}, err
	}
	snap, store, err := c.begin()
	if err != nil {
		return &Result{Err: err, ErrorMessage: err.Error()}, err
	}

	res := &Result{RunID: uuid.NewString()}
	logger := c.runLogger(ctx).With("run_id", res.RunID)
	start := time.Now()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return c.finish(ctx, res, start, fmt.Errorf("%w: %v", ErrAccess, err))
		}
		return c.finish(ctx, res, start, fmt.Errorf("%w: input has no header line", ErrSchema))
	}
	if got := len(SplitHeader(sc.Text())); got != len(snap.properties) {
		logger.Warn("input header differs from schema", "columns", got, "properties", len(snap.properties))
	}

	// Timing covers row processing only, not opening the input.
	start = time.Now()
	logger.Info("conversion started", "threads", threads, "batch_size", c.BatchSize(), "properties", len(snap.properties))

	pool := newWorkerPool(threads, func(b *batch) batchResult {
		br := snap.processBatch(store, b, logger)
		outcome := metrics.OutcomeCommitted
		if br.err != nil {
			outcome = metrics.OutcomeRejected
		}
		c.Metrics.ObserveBatch(outcome, br.rows, br.statements)
		return br
	})

	var jobs []*job
	rows, readErr := partition(sc, c.BatchSize(), func(b *batch) {
		jobs = append(jobs, pool.submit(b))
	})
	pool.shutdown()
	res.Rows = rows
	res.Batches = len(jobs)

	select {
	case <-pool.done():
	case <-ctx.Done():
		return c.finish(ctx, res, start, fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err()))
	}

	batchErr := aggregate(jobs, res)
	res.PropertyCounts = countProperties(snap, store)
	if readErr != nil {
		return c.finish(ctx, res, start, fmt.Errorf("%w: %v", ErrAccess, readErr))
	}
	return c.finish(ctx, res, start, batchErr)
}

// checkRunnable reports whether a run with threads workers may start from
// the current state.
func (c *Converter) checkRunnable(threads int) error {
	if err := checkThreads(threads); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runnableLocked()
}

func checkThreads(threads int) error {
	if threads < 1 {
		return fmt.Errorf("%w: got %d", ErrThreads, threads)
	}
	return nil
}

func (c *Converter) runnableLocked() error {
	switch c.state {
	case StateInitialized:
		return nil
	case StateRunning:
		return ErrBusy
	default:
		return fmt.Errorf("%w: converter is %s, call InitModel first", ErrNotInitialized, c.state)
	}
}

// begin moves the converter to running and freezes the schema.
func (c *Converter) begin() (*schemaSnapshot, *graph.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.runnableLocked(); err != nil {
		return nil, nil, err
	}
	c.state = StateRunning
	if c.Metrics != nil {
		c.store.SetLockObserver(c.Metrics.ObserveLock)
	}
	return c.snapshot(), c.store, nil
}

// finish records the outcome and moves to completed or failed.
func (c *Converter) finish(ctx context.Context, res *Result, start time.Time, err error) (*Result, error) {
	elapsed := time.Since(start)
	res.ElapsedMillis = elapsed.Milliseconds()
	res.Success = err == nil
	res.Err = err
	if err != nil {
		res.ErrorMessage = err.Error()
	}
	c.Metrics.ObserveRun(elapsed, res.Success)

	logger := c.runLogger(ctx).With("run_id", res.RunID)
	if err != nil {
		logger.Error("conversion failed", "error", err, "committed_batches", res.CommittedBatches, "batches", res.Batches)
	} else {
		logger.Info("conversion finished", "rows", res.Rows, "statements", res.Statements, "elapsed_ms", res.ElapsedMillis)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = res
	if err != nil {
		c.state = StateFailed
	} else {
		c.state = StateCompleted
	}
	return res, err
}

func (c *Converter) open(path string) (billy.File, error) {
	fs := c.FS
	if fs == nil {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAccess, err)
		}
		fs, path = osfs.New("/"), abs
	}
	f, err := fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: file not found: %s", ErrAccess, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrAccess, err)
	}
	return f, nil
}

func (c *Converter) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Converter) runLogger(ctx context.Context) *slog.Logger {
	if l, ok := logging.Lookup(ctx); ok {
		return l
	}
	return c.logger()
}
