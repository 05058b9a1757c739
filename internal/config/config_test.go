package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentic-research/csvgraph/api"
	"github.com/agentic-research/csvgraph/internal/graph"
	"github.com/agentic-research/csvgraph/internal/ingest"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func boolPtr(b bool) *bool { return &b }

var wantConversion = &api.Conversion{
	Prefix:    "http://ex.org/people#",
	RowType:   "Person",
	Threads:   4,
	BatchSize: 50,
	Columns: []api.Column{
		{Name: "Code", Type: "int"},
		{Name: "Home Page", Literal: boolPtr(false), Type: "http://xmlns.com/foaf/0.1/Document"},
		{Name: "Notes", Skip: true},
	},
}

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "hcl",
			file: "conv.hcl",
			content: `
prefix     = "http://ex.org/people#"
row_type   = "Person"
threads    = 4
batch_size = 50

column "Code" {
  type = "int"
}

column "Home Page" {
  literal = false
  type    = "http://xmlns.com/foaf/0.1/Document"
}

column "Notes" {
  skip = true
}
`,
		},
		{
			name: "json",
			file: "conv.json",
			content: `{
  "prefix": "http://ex.org/people#",
  "row_type": "Person",
  "threads": 4,
  "batch_size": 50,
  "columns": [
    {"name": "Code", "type": "int"},
    {"name": "Home Page", "literal": false, "type": "http://xmlns.com/foaf/0.1/Document"},
    {"name": "Notes", "skip": true}
  ]
}`,
		},
		{
			name: "yaml",
			file: "conv.yaml",
			content: `
prefix: http://ex.org/people#
row_type: Person
threads: 4
batch_size: 50
columns:
  - name: Code
    type: int
  - name: Home Page
    literal: false
    type: http://xmlns.com/foaf/0.1/Document
  - name: Notes
    skip: true
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)
			if d := cmp.Diff(wantConversion, got); d != "" {
				t.Errorf("Load mismatch (-want +got):\n%s", d)
			}
		})
	}
}

func TestLoad_FillsDefaults(t *testing.T) {
	got, err := Load(writeFile(t, "empty.yml", "metadata: types.meta\n"))
	require.NoError(t, err)
	want := Default()
	want.Metadata = "types.meta"
	assert.Equal(t, want, got)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "conv.toml", "x = 1"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Load(writeFile(t, "bad.json", `{"threads": "four"}`))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Load(writeFile(t, "list.json", `[1, 2]`))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Load(writeFile(t, "broken.hcl", `prefix = `))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := Default()
	require.NoError(t, Validate(c))

	c.Threads = 0
	assert.ErrorIs(t, Validate(c), ErrInvalid)

	c = Default()
	c.BatchSize = -1
	assert.ErrorIs(t, Validate(c), ErrInvalid)

	c = Default()
	c.Columns = []api.Column{{Name: " "}}
	assert.ErrorIs(t, Validate(c), ErrInvalid)
}

func TestConverterConfig_RowType(t *testing.T) {
	c := Default()
	assert.Equal(t, DefaultRowType, ConverterConfig(c).RowType)

	c.RowType = "None"
	assert.Empty(t, ConverterConfig(c).RowType)
}

func TestApply(t *testing.T) {
	meta := writeFile(t, "types.meta", "string,double,string,string\n")
	conv := ingest.NewConverter(ConverterConfig(wantConversion))
	require.NoError(t, conv.InitModel([]string{"Name", "Code", "Home Page", "Notes"}))

	c := *wantConversion
	c.Metadata = meta
	require.NoError(t, Apply(&c, conv, ""))

	prefix := wantConversion.Prefix
	code, _ := conv.Metadata(graph.IRI(prefix + "Code"))
	assert.Equal(t, graph.IRI(graph.XSDNamespace+"int"), code.Datatype, "column directives win over the metadata file")

	home, _ := conv.Metadata(graph.IRI(prefix + "Home_Page"))
	assert.False(t, home.IsLiteral)
	assert.Equal(t, "http://xmlns.com/foaf/0.1/Document", home.ObjectURI)

	notes, _ := conv.Metadata(graph.IRI(prefix + "Notes"))
	assert.True(t, notes.IsSkipped)

	_, err := conv.ReadInput(context.Background(), strings.NewReader("Name,Code,Home Page,Notes\nAlice,1,http://a,x\n"), c.Threads)
	require.NoError(t, err)
	assert.Equal(t, 4, conv.Store().Len(), "three columns plus the row type")
}

func TestApply_UnknownColumn(t *testing.T) {
	conv := ingest.NewConverter(ingest.DefaultConverterConfig())
	require.NoError(t, conv.InitModel([]string{"Name"}))
	err := Apply(&api.Conversion{Columns: []api.Column{{Name: "Missing", Skip: true}}}, conv, "")
	assert.ErrorIs(t, err, ErrInvalid)
}
