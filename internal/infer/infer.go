// Package infer guesses a datatype for each CSV column from a sample of rows.
//
// Every sampled cell is tested against a fixed set of candidate datatypes,
// building one bitmap per (column, datatype) of the rows that parse. A
// datatype is a valid choice for a column when its bitmap covers every
// non-empty cell; the first valid candidate in specificity order wins.
package infer

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/agentic-research/csvgraph/internal/graph"
)

// candidate is a datatype and the test a lexical value must pass.
type candidate struct {
	name  string
	match func(string) bool
}

var (
	gYearRe = regexp.MustCompile(`^-?\d{4}$`)
	dateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// candidates in specificity order. Values accepted by an earlier entry are
// usually accepted by a later one (every integer is a decimal), so order
// decides ties.
var candidates = []candidate{
	{"integer", func(s string) bool { _, err := strconv.ParseInt(s, 10, 64); return err == nil }},
	{"decimal", func(s string) bool {
		if strings.ContainsAny(s, "eE") {
			return false
		}
		_, err := strconv.ParseFloat(s, 64)
		return err == nil
	}},
	{"double", func(s string) bool { _, err := strconv.ParseFloat(s, 64); return err == nil }},
	{"boolean", func(s string) bool { return s == "true" || s == "false" }},
	{"gYear", gYearRe.MatchString},
	{"date", func(s string) bool {
		if !dateRe.MatchString(s) {
			return false
		}
		_, err := time.Parse("2006-01-02", s)
		return err == nil
	}},
	{"dateTime", func(s string) bool {
		if _, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return true
		}
		_, err := time.Parse("2006-01-02T15:04:05", s)
		return err == nil
	}},
	{"anyURI", func(s string) bool {
		u, err := url.Parse(s)
		return err == nil && u.Scheme != "" && (u.Host != "" || u.Opaque != "")
	}},
}

// ColumnStats is what the sample showed about one column.
type ColumnStats struct {
	Count       int       // non-empty cells
	Empty       int       // empty cells
	Cardinality int       // distinct non-empty values
	Datatype    graph.IRI // best datatype, xsd:string when nothing else fits
}

// Identifier reports whether every sampled value was distinct.
func (c ColumnStats) Identifier() bool {
	return c.Count > 1 && c.Cardinality == c.Count
}

// Columns analyzes rows, each already split into width fields. Rows of the
// wrong width are ignored.
func Columns(rows [][]string, width int) []ColumnStats {
	stats := make([]ColumnStats, width)
	values := make([]map[string]struct{}, width)
	// incidence[col][k] holds the rows whose cell parses as candidates[k].
	incidence := make([][]*roaring.Bitmap, width)
	for col := range incidence {
		values[col] = make(map[string]struct{})
		incidence[col] = make([]*roaring.Bitmap, len(candidates))
		for k := range candidates {
			incidence[col][k] = roaring.New()
		}
	}

	for r, fields := range rows {
		if len(fields) != width {
			continue
		}
		for col, raw := range fields {
			v := strings.TrimSpace(strings.Trim(raw, `"`))
			if v == "" {
				stats[col].Empty++
				continue
			}
			stats[col].Count++
			values[col][v] = struct{}{}
			for k, c := range candidates {
				if c.match(v) {
					incidence[col][k].Add(uint32(r))
				}
			}
		}
	}

	for col := range stats {
		stats[col].Cardinality = len(values[col])
		stats[col].Datatype = choose(incidence[col], stats[col].Count)
	}
	return stats
}

// choose picks the first candidate that every non-empty cell satisfies.
func choose(bitmaps []*roaring.Bitmap, count int) graph.IRI {
	if count == 0 {
		return graph.XSDString
	}
	for k, bm := range bitmaps {
		if int(bm.GetCardinality()) == count {
			return graph.ResolveDatatype(candidates[k].name)
		}
	}
	return graph.XSDString
}
