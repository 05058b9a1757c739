package ingest

import "github.com/agentic-research/csvgraph/internal/graph"

// Result summarizes one ReadInput run.
type Result struct {
	RunID            string
	Success          bool
	ElapsedMillis    int64
	ErrorMessage     string
	Rows             int
	Batches          int
	CommittedBatches int
	Statements       int

	// PropertyCounts holds statements per predicate in header order, with
	// rdf:type last when a row type is set.
	PropertyCounts []PropertyCount

	// Err is the error behind ErrorMessage, for errors.Is / errors.As.
	Err error
}

// Report returns the result as a plain map, ready for JSON encoding.
func (r *Result) Report() map[string]any {
	m := map[string]any{
		"run_id":            r.RunID,
		"success":           r.Success,
		"elapsed_ms":        r.ElapsedMillis,
		"rows":              r.Rows,
		"batches":           r.Batches,
		"committed_batches": r.CommittedBatches,
		"statements":        r.Statements,
	}
	if r.ErrorMessage != "" {
		m["error"] = r.ErrorMessage
	}
	if len(r.PropertyCounts) > 0 {
		props := make(map[string]any, len(r.PropertyCounts))
		for _, pc := range r.PropertyCounts {
			props[string(pc.Property)] = pc.Statements
		}
		m["properties"] = props
	}
	return m
}

// PropertyCount is the number of statements written for one predicate.
type PropertyCount struct {
	Property   graph.IRI
	Statements int
}

// countProperties reads per-predicate totals from the store's index.
func countProperties(s *schemaSnapshot, store *graph.Store) []PropertyCount {
	out := make([]PropertyCount, 0, len(s.properties)+1)
	for _, p := range s.properties {
		out = append(out, PropertyCount{Property: p, Statements: store.CountPredicate(p)})
	}
	if s.rowType != "" {
		out = append(out, PropertyCount{Property: graph.RDFType, Statements: store.CountPredicate(graph.RDFType)})
	}
	return out
}

// aggregate walks jobs in submission order. The first failed batch becomes
// the overall error; counts cover every batch that committed.
func aggregate(jobs []*job, res *Result) error {
	var first error
	for _, j := range jobs {
		if j.res.err != nil {
			if first == nil {
				first = j.res.err
			}
			continue
		}
		res.CommittedBatches++
		res.Statements += j.res.statements
	}
	return first
}
