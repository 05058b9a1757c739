package ingest

import (
	"bufio"
	"fmt"
	"io"

	"github.com/agentic-research/csvgraph/internal/infer"
)

// SampleRows reads the header line of r and then up to n data rows, split
// with the same tokenizer a run uses.
func SampleRows(r io.Reader, n int) ([][]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAccess, err)
		}
		return nil, fmt.Errorf("%w: input is empty", ErrSchema)
	}
	var rows [][]string
	for len(rows) < n && sc.Scan() {
		rows = append(rows, SplitRow(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccess, err)
	}
	return rows, nil
}

// InferDatatypes samples up to n rows of r and sets the inferred datatype
// on every column. Call it before LoadMetadata or SetLiteralType so explicit
// settings win.
func (c *Converter) InferDatatypes(r io.Reader, n int) ([]infer.ColumnStats, error) {
	rows, err := SampleRows(r, n)
	if err != nil {
		return nil, err
	}
	props := c.Properties()
	stats := infer.Columns(rows, len(props))
	for i, p := range props {
		if err := c.SetLiteralType(p, string(stats[i].Datatype)); err != nil {
			return nil, err
		}
	}
	c.logger().Debug("inferred datatypes", "rows", len(rows), "columns", len(props))
	return stats, nil
}

// InferDatatypesFile is InferDatatypes for a file path.
func (c *Converter) InferDatatypesFile(path string, n int) ([]infer.ColumnStats, error) {
	f, err := c.open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }() // read-only
	return c.InferDatatypes(f, n)
}
