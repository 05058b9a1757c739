package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/agentic-research/csvgraph/internal/graph"
)

// PropertyMetadata describes how one column becomes statements.
type PropertyMetadata struct {
	IsLiteral bool
	Datatype  graph.IRI // resolved XSD datatype, literal columns only
	ObjectURI string    // target class, resource-typed columns only
	IsSkipped bool
}

func defaultMetadata() PropertyMetadata {
	return PropertyMetadata{IsLiteral: true, Datatype: graph.XSDString}
}

// CleanName replaces characters that are not allowed in a property local
// name with '_': space, '&' and everything N-Triples forbids inside an IRI.
func CleanName(header string) string {
	return strings.Map(func(r rune) rune {
		if r <= ' ' {
			return '_'
		}
		switch r {
		case '&', '<', '>', '"', '{', '}', '|', '^', '`', '\\':
			return '_'
		}
		return r
	}, header)
}

// InitModel builds the property list from the header fields and replaces
// any existing store, properties and metadata.
func (c *Converter) InitModel(headers []string) error {
	if len(headers) == 0 || (len(headers) == 1 && strings.TrimSpace(headers[0]) == "") {
		return fmt.Errorf("%w: header row has no columns", ErrSchema)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRunning {
		return ErrBusy
	}

	store := graph.NewStore()
	store.SetPrefix("csv", c.prefix)

	if c.rowType != "" {
		if _, err := graph.NewIRI(string(c.rowType)); err != nil {
			return fmt.Errorf("%w: row type: %v", ErrInvalidIRI, err)
		}
	}

	properties := make([]graph.IRI, len(headers))
	meta := make([]PropertyMetadata, len(headers))
	for i, h := range headers {
		if strings.TrimSpace(h) == "" {
			return fmt.Errorf("%w: column %d has an empty name", ErrSchema, i+1)
		}
		p, err := graph.NewIRI(c.prefix + CleanName(h))
		if err != nil {
			return fmt.Errorf("%w: column %d: %v", ErrInvalidIRI, i+1, err)
		}
		properties[i] = p
		meta[i] = defaultMetadata()
	}

	c.headers = append([]string(nil), headers...)
	c.properties = properties
	c.meta = meta
	c.store = store
	c.state = StateInitialized

	c.logger().Debug("initialized model", "properties", len(properties), "headers", headers)
	return nil
}

// InitModelFromFile reads the first line of path as the header row.
func (c *Converter) InitModelFromFile(path string) error {
	f, err := c.open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }() // read-only

	line, err := readFirstLine(f)
	if err != nil {
		return err
	}
	return c.InitModel(SplitHeader(line))
}

// checkMutable reports whether the metadata table may still change.
// Must be called with c.mu held.
func (c *Converter) checkMutable() error {
	switch c.state {
	case StateIdle:
		return ErrNotInitialized
	case StateInitialized:
		return nil
	default:
		return fmt.Errorf("%w: converter is %s", ErrFrozen, c.state)
	}
}

// mutableIndex finds p for a metadata mutation. Must be called with c.mu held.
// A -1 index with a nil error means p is not a known property.
func (c *Converter) mutableIndex(p graph.IRI) (int, error) {
	if err := c.checkMutable(); err != nil {
		return -1, err
	}
	for i, prop := range c.properties {
		if prop == p {
			return i, nil
		}
	}
	return -1, nil
}

// MarkSkipped excludes p from the statements of the next run.
// Unknown properties are ignored.
func (c *Converter) MarkSkipped(p graph.IRI) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, err := c.mutableIndex(p)
	if err != nil || idx < 0 {
		return err
	}
	c.meta[idx].IsSkipped = true
	return nil
}

// SetLiteralType makes p a literal column of the named datatype.
// Unrecognized names fall back to xsd:string.
func (c *Converter) SetLiteralType(p graph.IRI, datatypeName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, err := c.mutableIndex(p)
	if err != nil || idx < 0 {
		return err
	}
	c.meta[idx] = PropertyMetadata{
		IsLiteral: true,
		Datatype:  graph.ResolveDatatype(datatypeName),
		IsSkipped: c.meta[idx].IsSkipped,
	}
	return nil
}

// SetResourceType marks p as an object property pointing at targetURI.
// Cell values of such columns are still written as plain literals.
func (c *Converter) SetResourceType(p graph.IRI, targetURI string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx, err := c.mutableIndex(p)
	if err != nil || idx < 0 {
		return err
	}
	c.meta[idx] = PropertyMetadata{
		IsLiteral: false,
		ObjectURI: targetURI,
		IsSkipped: c.meta[idx].IsSkipped,
	}
	return nil
}

// LoadMetadata reads one line of comma-separated datatype names aligned to
// the header columns. The caller is responsible for the line having as many
// entries as the header; extra names are ignored and missing names leave the
// remaining columns untouched.
func (c *Converter) LoadMetadata(r io.Reader) error {
	line, err := readFirstLine(r)
	if err != nil {
		return err
	}
	names := SplitHeader(line)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkMutable(); err != nil {
		return err
	}
	if len(names) != len(c.properties) {
		c.logger().Warn("metadata column count differs from header",
			"metadata", len(names), "header", len(c.properties))
	}
	for i, name := range names {
		if i >= len(c.meta) {
			break
		}
		c.meta[i] = PropertyMetadata{
			IsLiteral: true,
			Datatype:  graph.ResolveDatatype(name),
			IsSkipped: c.meta[i].IsSkipped,
		}
	}
	return nil
}

// LoadMetadataFile is LoadMetadata for a file path.
func (c *Converter) LoadMetadataFile(path string) error {
	f, err := c.open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }() // read-only
	return c.LoadMetadata(f)
}

// Properties returns the header properties in column order.
func (c *Converter) Properties() []graph.IRI {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]graph.IRI(nil), c.properties...)
}

// Headers returns the raw header cells the properties were built from.
func (c *Converter) Headers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.headers...)
}

// Metadata returns the metadata slot of p.
func (c *Converter) Metadata(p graph.IRI) (PropertyMetadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, prop := range c.properties {
		if prop == p {
			return c.meta[i], true
		}
	}
	return PropertyMetadata{}, false
}

// PropertyByName looks a property up by its raw header cell or by its
// cleaned local name.
func (c *Converter) PropertyByName(name string) (graph.IRI, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cleaned := CleanName(name)
	for i, h := range c.headers {
		if h == name || CleanName(h) == cleaned {
			return c.properties[i], true
		}
	}
	return "", false
}

// schemaSnapshot is the immutable view of the schema handed to workers.
type schemaSnapshot struct {
	prefix     string
	rowType    graph.IRI
	properties []graph.IRI
	meta       []PropertyMetadata
}

// snapshot copies the schema. Must be called with c.mu held.
func (c *Converter) snapshot() *schemaSnapshot {
	return &schemaSnapshot{
		prefix:     c.prefix,
		rowType:    c.rowType,
		properties: append([]graph.IRI(nil), c.properties...),
		meta:       append([]PropertyMetadata(nil), c.meta...),
	}
}

// resource returns the subject IRI of data row i.
func (s *schemaSnapshot) resource(row int) graph.IRI {
	return graph.IRI(s.prefix + "res" + strconv.Itoa(row))
}

// object converts a cell into the object term for column meta.
func (s *schemaSnapshot) object(meta PropertyMetadata, value string) graph.Term {
	if meta.IsLiteral {
		return graph.Literal{Lexical: value, Datatype: meta.Datatype}
	}
	return graph.Literal{Lexical: value}
}

func readFirstLine(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrAccess, err)
		}
		return "", fmt.Errorf("%w: input is empty", ErrSchema)
	}
	return sc.Text(), nil
}
