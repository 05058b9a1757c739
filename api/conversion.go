package api

// Conversion is the file form of a CSV to RDF run. It can be written as
// HCL, JSON or YAML; field names are the same in all three.
type Conversion struct {
	// Prefix is the namespace for properties and row resources.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty" hcl:"prefix,optional"`
	// RowType is the rdf:type of every row. Relative names resolve
	// against Prefix; "none" disables it.
	RowType string `json:"row_type,omitempty" yaml:"row_type,omitempty" hcl:"row_type,optional"`
	// Threads is the worker count.
	Threads int `json:"threads,omitempty" yaml:"threads,omitempty" hcl:"threads,optional"`
	// BatchSize is the number of rows per unit of work.
	BatchSize int `json:"batch_size,omitempty" yaml:"batch_size,omitempty" hcl:"batch_size,optional"`
	// Infer samples this many rows to guess column datatypes; 0 disables it.
	Infer int `json:"infer,omitempty" yaml:"infer,omitempty" hcl:"infer,optional"`
	// Metadata is a path to a one-line datatype file aligned to the header.
	Metadata string `json:"metadata,omitempty" yaml:"metadata,omitempty" hcl:"metadata,optional"`
	// Columns override per-column behavior, applied after Infer and Metadata.
	Columns []Column `json:"columns,omitempty" yaml:"columns,omitempty" hcl:"column,block"`
}

// Column addresses one header column by its raw or cleaned name.
type Column struct {
	Name string `json:"name" yaml:"name" hcl:"name,label"`
	// Skip drops the column from the output.
	Skip bool `json:"skip,omitempty" yaml:"skip,omitempty" hcl:"skip,optional"`
	// Literal selects a literal column (default) or a resource column.
	Literal *bool `json:"literal,omitempty" yaml:"literal,omitempty" hcl:"literal,optional"`
	// Type is an XSD datatype name for literal columns, or the target
	// class IRI for resource columns.
	Type string `json:"type,omitempty" yaml:"type,omitempty" hcl:"type,optional"`
}

// IsLiteral reports whether the column produces literal values.
func (c Column) IsLiteral() bool {
	return c.Literal == nil || *c.Literal
}
