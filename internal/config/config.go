// Package config loads conversion settings from HCL, JSON or YAML files and
// applies them to a converter.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentic-research/csvgraph/api"
	"github.com/agentic-research/csvgraph/internal/ingest"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"gopkg.in/yaml.v3"
)

// DefaultRowType is the row class used by the command line when nothing
// else is configured.
const DefaultRowType = "CsvNode"

// NoRowType in a file or flag disables the per-row rdf:type statement.
const NoRowType = "none"

// ErrInvalid marks a configuration that cannot drive a run.
var ErrInvalid = errors.New("invalid configuration")

// Default returns the settings used when no file is given.
func Default() *api.Conversion {
	return &api.Conversion{
		Prefix:    ingest.DefaultPrefix,
		RowType:   DefaultRowType,
		Threads:   1,
		BatchSize: ingest.DefaultBatchSize,
	}
}

// Load reads path, picking the decoder from its extension, and fills any
// unset field from Default.
func Load(path string) (*api.Conversion, error) {
	var (
		conv *api.Conversion
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".hcl":
		conv, err = loadHCL(path)
	case ".json":
		conv, err = loadJSON(path)
	case ".yaml", ".yml":
		conv, err = loadYAML(path)
	default:
		return nil, fmt.Errorf("%w: unsupported config extension %q", ErrInvalid, ext)
	}
	if err != nil {
		return nil, err
	}
	fillDefaults(conv)
	return conv, nil
}

func fillDefaults(c *api.Conversion) {
	d := Default()
	if c.Prefix == "" {
		c.Prefix = d.Prefix
	}
	if c.RowType == "" {
		c.RowType = d.RowType
	}
	if c.Threads == 0 {
		c.Threads = d.Threads
	}
	if c.BatchSize == 0 {
		c.BatchSize = d.BatchSize
	}
}

// Validate rejects settings a run cannot start with.
func Validate(c *api.Conversion) error {
	if c.Threads <= 0 {
		return fmt.Errorf("%w: threads must be positive, got %d", ErrInvalid, c.Threads)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalid, c.BatchSize)
	}
	if c.Infer < 0 {
		return fmt.Errorf("%w: infer must not be negative, got %d", ErrInvalid, c.Infer)
	}
	for i, col := range c.Columns {
		if strings.TrimSpace(col.Name) == "" {
			return fmt.Errorf("%w: column %d has no name", ErrInvalid, i)
		}
	}
	return nil
}

// ConverterConfig maps the file settings onto the converter constructor.
func ConverterConfig(c *api.Conversion) ingest.ConverterConfig {
	rowType := c.RowType
	if strings.EqualFold(rowType, NoRowType) {
		rowType = ""
	}
	return ingest.ConverterConfig{
		Prefix:    c.Prefix,
		RowType:   rowType,
		BatchSize: c.BatchSize,
	}
}

// Apply pushes inferred datatypes, the metadata file and column directives
// into conv, in that order. conv must be initialized; csvPath is sampled
// when Infer is set. Column names that match no header are an error.
func Apply(c *api.Conversion, conv *ingest.Converter, csvPath string) error {
	if c.Infer > 0 {
		if _, err := conv.InferDatatypesFile(csvPath, c.Infer); err != nil {
			return fmt.Errorf("infer datatypes: %w", err)
		}
	}
	if c.Metadata != "" {
		if err := conv.LoadMetadataFile(c.Metadata); err != nil {
			return fmt.Errorf("load metadata %s: %w", c.Metadata, err)
		}
	}
	for _, col := range c.Columns {
		p, ok := conv.PropertyByName(col.Name)
		if !ok {
			return fmt.Errorf("%w: column %q is not in the header", ErrInvalid, col.Name)
		}
		if col.Type != "" {
			var err error
			if col.IsLiteral() {
				err = conv.SetLiteralType(p, col.Type)
			} else {
				err = conv.SetResourceType(p, col.Type)
			}
			if err != nil {
				return fmt.Errorf("column %q: %w", col.Name, err)
			}
		}
		if col.Skip {
			if err := conv.MarkSkipped(p); err != nil {
				return fmt.Errorf("column %q: %w", col.Name, err)
			}
		}
	}
	return nil
}

func loadHCL(path string) (*api.Conversion, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	var conv api.Conversion
	if diags := gohcl.DecodeBody(file.Body, nil, &conv); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}
	return &conv, nil
}

func loadYAML(path string) (*api.Conversion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var conv api.Conversion
	if err := yaml.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &conv, nil
}

var (
	jsonPrefix    = jp.MustParseString("$.prefix")
	jsonRowType   = jp.MustParseString("$.row_type")
	jsonThreads   = jp.MustParseString("$.threads")
	jsonBatchSize = jp.MustParseString("$.batch_size")
	jsonInfer     = jp.MustParseString("$.infer")
	jsonMetadata  = jp.MustParseString("$.metadata")
	jsonColumns   = jp.MustParseString("$.columns[*]")
)

func loadJSON(path string) (*api.Conversion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	root, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if _, ok := root.(map[string]any); !ok {
		return nil, fmt.Errorf("%w: %s: top level must be an object", ErrInvalid, path)
	}

	conv := &api.Conversion{
		Prefix:   firstString(jsonPrefix, root),
		RowType:  firstString(jsonRowType, root),
		Metadata: firstString(jsonMetadata, root),
	}
	if conv.Threads, err = firstInt(jsonThreads, root); err != nil {
		return nil, fmt.Errorf("%s: threads: %w", path, err)
	}
	if conv.BatchSize, err = firstInt(jsonBatchSize, root); err != nil {
		return nil, fmt.Errorf("%s: batch_size: %w", path, err)
	}
	if conv.Infer, err = firstInt(jsonInfer, root); err != nil {
		return nil, fmt.Errorf("%s: infer: %w", path, err)
	}
	for i, raw := range jsonColumns.Get(root) {
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s: column %d must be an object", ErrInvalid, path, i)
		}
		col := api.Column{}
		col.Name, _ = obj["name"].(string)
		col.Skip, _ = obj["skip"].(bool)
		col.Type, _ = obj["type"].(string)
		if lit, ok := obj["literal"].(bool); ok {
			col.Literal = &lit
		}
		conv.Columns = append(conv.Columns, col)
	}
	return conv, nil
}

func firstString(x jp.Expr, root any) string {
	s, _ := x.First(root).(string)
	return s
}

func firstInt(x jp.Expr, root any) (int, error) {
	switch v := x.First(root).(type) {
	case nil:
		return 0, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalid, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: expected a number, got %T", ErrInvalid, v)
	}
}
