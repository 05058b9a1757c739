package graph

import (
	"fmt"
	"io"

	"github.com/knakk/rdf"
)

// Well-known vocabulary IRIs used by the converter.
const (
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace = "http://www.w3.org/2000/01/rdf-schema#"
	XSDNamespace  = "http://www.w3.org/2001/XMLSchema#"

	RDFType   IRI = RDFNamespace + "type"
	RDFSClass IRI = RDFSNamespace + "Class"
)

// Term is anything that can sit in the object position of a Statement.
type Term interface {
	// Object converts the term to its rdf form, validating any IRI.
	Object() (rdf.Object, error)
	sortKey() string
}

// IRI identifies a resource or a property. The zero-cost string form is
// what the store indexes; NewIRI is the validating constructor.
type IRI string

// NewIRI returns s as an IRI, or an error if s is empty or contains a
// character N-Triples does not allow inside <...>.
func NewIRI(s string) (IRI, error) {
	if _, err := rdf.NewIRI(s); err != nil {
		return "", fmt.Errorf("invalid IRI %q: %w", s, err)
	}
	return IRI(s), nil
}

// RDF converts i to an rdf.IRI.
func (i IRI) RDF() (rdf.IRI, error) {
	return rdf.NewIRI(string(i))
}

// Object implements Term.
func (i IRI) Object() (rdf.Object, error) {
	iri, err := i.RDF()
	if err != nil {
		return nil, err
	}
	return iri, nil
}

func (i IRI) sortKey() string { return "<" + string(i) }

// Literal is a scalar value. An empty Datatype marks a plain literal.
type Literal struct {
	Lexical  string
	Datatype IRI
}

// Object implements Term.
func (l Literal) Object() (rdf.Object, error) {
	if l.Datatype == "" {
		lit, err := rdf.NewLiteral(l.Lexical)
		if err != nil {
			return nil, err
		}
		return lit, nil
	}
	dt, err := l.Datatype.RDF()
	if err != nil {
		return nil, err
	}
	return rdf.NewTypedLiteral(l.Lexical, dt), nil
}

func (l Literal) sortKey() string { return `"` + l.Lexical + "\x00" + string(l.Datatype) }

// Statement is one subject–predicate–object fact.
type Statement struct {
	Subject   IRI
	Predicate IRI
	Object    Term
}

// Triple converts s to an rdf.Triple.
func (s Statement) Triple() (rdf.Triple, error) {
	subj, err := s.Subject.RDF()
	if err != nil {
		return rdf.Triple{}, fmt.Errorf("subject: %w", err)
	}
	pred, err := s.Predicate.RDF()
	if err != nil {
		return rdf.Triple{}, fmt.Errorf("predicate: %w", err)
	}
	obj, err := s.Object.Object()
	if err != nil {
		return rdf.Triple{}, fmt.Errorf("object: %w", err)
	}
	return rdf.Triple{Subj: subj, Pred: pred, Obj: obj}, nil
}

// ClassDeclaration is the "c rdf:type rdfs:Class" statement for c.
func ClassDeclaration(c IRI) Statement {
	return Statement{Subject: c, Predicate: RDFType, Object: RDFSClass}
}

// WriteNTriples encodes sts to w in order, one statement per line. It
// stops at the first statement holding an invalid IRI.
func WriteNTriples(w io.Writer, sts []Statement) error {
	enc := rdf.NewTripleEncoder(w, rdf.NTriples)
	for _, st := range sts {
		tr, err := st.Triple()
		if err != nil {
			_ = enc.Close()
			return err
		}
		if err := enc.Encode(tr); err != nil {
			return err
		}
	}
	return enc.Close()
}
