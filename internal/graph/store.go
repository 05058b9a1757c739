package graph

import (
	"io"
	"sort"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring"
)

// LockObserver is notified after every Commit with how long the caller
// waited for the write lock and how long it held it.
type LockObserver func(wait, hold time.Duration)

// Store is the shared statement collection. All writes go through Commit,
// which holds one exclusive lock for the whole callback.
type Store struct {
	mu         sync.RWMutex
	statements []Statement
	prefixes   map[string]string
	classes    map[IRI]struct{}

	// Roaring bitmap index: predicate → set of statement positions.
	// Backs the per-property counts in run reports.
	byPredicate map[IRI]*roaring.Bitmap

	observer LockObserver
}

func NewStore() *Store {
	return &Store{
		prefixes:    make(map[string]string),
		classes:     make(map[IRI]struct{}),
		byPredicate: make(map[IRI]*roaring.Bitmap),
	}
}

// SetLockObserver installs fn as the Commit timing hook. Not safe to call
// while commits are in flight.
func (s *Store) SetLockObserver(fn LockObserver) {
	s.observer = fn
}

// SetPrefix maps a short namespace name to a URI.
func (s *Store) SetPrefix(name, uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefixes[name] = uri
}

// Prefixes returns a copy of the namespace prefix map.
func (s *Store) Prefixes() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.prefixes))
	for k, v := range s.prefixes {
		out[k] = v
	}
	return out
}

// Tx is the write handle passed to a Commit callback. It is only valid
// inside that callback, while the store lock is held.
type Tx struct {
	s     *Store
	added int
}

// Add appends a statement and indexes it by predicate.
func (tx *Tx) Add(st Statement) {
	s := tx.s
	id := uint32(len(s.statements))
	s.statements = append(s.statements, st)
	bm, ok := s.byPredicate[st.Predicate]
	if !ok {
		bm = roaring.New()
		s.byPredicate[st.Predicate] = bm
	}
	bm.Add(id)
	tx.added++
}

// DeclareClass records c as an rdfs:Class. Declarations are a set and are
// not part of the statement multiset.
func (tx *Tx) DeclareClass(c IRI) {
	tx.s.classes[c] = struct{}{}
}

// Added reports how many statements this Tx has written so far.
func (tx *Tx) Added() int {
	return tx.added
}

// Commit runs fn while holding the exclusive write lock. The lock is
// released on every exit path, including a panic or an error from fn.
// Statements written before fn fails are kept.
func (s *Store) Commit(fn func(tx *Tx) error) error {
	start := time.Now()
	s.mu.Lock()
	acquired := time.Now()
	defer func() {
		s.mu.Unlock()
		if s.observer != nil {
			s.observer(acquired.Sub(start), time.Since(acquired))
		}
	}()
	return fn(&Tx{s: s})
}

// Len returns the number of statements.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.statements)
}

// Statements returns a copy of all statements in insertion order.
func (s *Store) Statements() []Statement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Statement, len(s.statements))
	copy(out, s.statements)
	return out
}

// Sorted returns all statements ordered by subject, predicate and object.
// Insertion order depends on batch scheduling; this order does not.
func (s *Store) Sorted() []Statement {
	out := s.Statements()
	SortStatements(out)
	return out
}

// SortStatements orders statements by subject, predicate, then object.
func SortStatements(sts []Statement) {
	sort.Slice(sts, func(i, j int) bool {
		a, b := sts[i], sts[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Predicate != b.Predicate {
			return a.Predicate < b.Predicate
		}
		return a.Object.sortKey() < b.Object.sortKey()
	})
}

// CountPredicate returns how many statements use p as predicate.
func (s *Store) CountPredicate(p IRI) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bm, ok := s.byPredicate[p]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// ByPredicate returns the statements using p as predicate, in insertion order.
func (s *Store) ByPredicate(p IRI) []Statement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bm, ok := s.byPredicate[p]
	if !ok {
		return nil
	}
	out := make([]Statement, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, s.statements[it.Next()])
	}
	return out
}

// Classes returns the declared classes, sorted.
func (s *Store) Classes() []IRI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]IRI, 0, len(s.classes))
	for c := range s.classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dump writes every statement as N-Triples, sorted, for debugging.
func (s *Store) Dump(w io.Writer) error {
	return WriteNTriples(w, s.Sorted())
}
