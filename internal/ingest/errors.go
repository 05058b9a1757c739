package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrAccess means the input could not be opened or read. Nothing was dispatched.
	ErrAccess = errors.New("input not accessible")
	// ErrSchema means the header row was missing, empty or had a blank
	// column name. Nothing was dispatched.
	ErrSchema = errors.New("invalid header")
	// ErrRowShape matches every *RowShapeError via errors.Is.
	ErrRowShape = errors.New("row field count mismatch")
	// ErrInterrupted means the wait for submitted batches was abandoned.
	// The batches themselves keep running to completion.
	ErrInterrupted = errors.New("wait for batches interrupted")

	// ErrInvalidIRI means a prefix, header or row type does not form an IRI
	// that can be written as N-Triples.
	ErrInvalidIRI = errors.New("invalid IRI")
	// ErrThreads means ReadInput was called without a positive worker count.
	ErrThreads = errors.New("thread count must be positive")

	ErrNotInitialized = errors.New("converter not initialized")
	ErrBusy           = errors.New("conversion already running")
	ErrFrozen         = errors.New("schema is frozen")
)

// RowShapeError reports a data row whose field count differs from the
// number of header properties.
type RowShapeError struct {
	Row      int // zero-based data row index
	Got      int
	Expected int
}

// Line is the 1-based line number reported to users.
func (e *RowShapeError) Line() int {
	return e.Row + 1
}

func (e *RowShapeError) Error() string {
	kind := "too long"
	if e.Got < e.Expected {
		kind = "too short"
	}
	return fmt.Sprintf("Line %d %s, should contain %d fields", e.Line(), kind, e.Expected)
}

func (e *RowShapeError) Is(target error) bool {
	return target == ErrRowShape
}
