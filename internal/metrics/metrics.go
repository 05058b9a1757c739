// Package metrics exposes Prometheus collectors for conversion runs.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "csvgraph"

// Batch outcomes used as the "outcome" label.
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
)

// Collector groups the converter's metrics.
type Collector struct {
	Batches     *prometheus.CounterVec
	Rows        prometheus.Counter
	Statements  prometheus.Counter
	LockWait    prometheus.Histogram
	LockHold    prometheus.Histogram
	RunDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches processed, by outcome.",
		}, []string{"outcome"}),
		Rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Data rows committed to the graph store.",
		}),
		Statements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_total",
			Help:      "Statements written to the graph store.",
		}),
		LockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_lock_wait_seconds",
			Help:      "Time a batch waited for the graph store lock.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		LockHold: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_lock_hold_seconds",
			Help:      "Time a batch held the graph store lock.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a conversion run, by result.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
	}

	for _, col := range []prometheus.Collector{c.Batches, c.Rows, c.Statements, c.LockWait, c.LockHold, c.RunDuration} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return c, nil
}

// ObserveBatch records one finished batch.
func (c *Collector) ObserveBatch(outcome string, rows, statements int) {
	if c == nil {
		return
	}
	c.Batches.WithLabelValues(outcome).Inc()
	if outcome == OutcomeCommitted {
		c.Rows.Add(float64(rows))
	}
	c.Statements.Add(float64(statements))
}

// ObserveLock records store lock timings. Its signature matches
// graph.LockObserver.
func (c *Collector) ObserveLock(wait, hold time.Duration) {
	if c == nil {
		return
	}
	c.LockWait.Observe(wait.Seconds())
	c.LockHold.Observe(hold.Seconds())
}

// ObserveRun records the duration of a whole run.
func (c *Collector) ObserveRun(d time.Duration, success bool) {
	if c == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	c.RunDuration.WithLabelValues(result).Observe(d.Seconds())
}

// WriteText writes every metric family from g in the text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
