// Package sink writes a converted graph somewhere outside the process:
// an N-Triples stream, a SQLite file or a Postgres table.
package sink

import (
	"context"
	"io"

	"github.com/agentic-research/csvgraph/internal/graph"
)

// Sink persists every statement of a store.
type Sink interface {
	Write(ctx context.Context, s *graph.Store) error
}

// WriteNTriples writes the store as N-Triples: one "rdf:type rdfs:Class"
// line per declared class, then every statement sorted by subject,
// predicate and object so output does not depend on batch scheduling.
func WriteNTriples(w io.Writer, s *graph.Store) error {
	classes := s.Classes()
	sts := make([]graph.Statement, 0, len(classes)+s.Len())
	for _, c := range classes {
		sts = append(sts, graph.ClassDeclaration(c))
	}
	return graph.WriteNTriples(w, append(sts, s.Sorted()...))
}

// NTriples adapts WriteNTriples to the Sink interface.
type NTriples struct {
	W io.Writer
}

func (n NTriples) Write(ctx context.Context, s *graph.Store) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteNTriples(n.W, s)
}

var _ Sink = NTriples{}

// row is the flattened form shared by the SQL sinks.
type row struct {
	subject   string
	predicate string
	object    string
	datatype  *string
	isLiteral bool
}

func flatten(st graph.Statement) row {
	r := row{subject: string(st.Subject), predicate: string(st.Predicate)}
	switch o := st.Object.(type) {
	case graph.Literal:
		r.object = o.Lexical
		r.isLiteral = true
		if o.Datatype != "" {
			dt := string(o.Datatype)
			r.datatype = &dt
		}
	case graph.IRI:
		r.object = string(o)
	}
	return r
}
