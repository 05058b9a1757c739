package ingest

import "strings"

// SplitHeader splits the header row on every comma. Quoting is not
// honored here; data rows use SplitRow.
func SplitHeader(line string) []string {
	return strings.Split(line, ",")
}

// SplitRow splits a data row on commas outside quoted regions. A comma
// separates fields only when an even number of '"' characters follows it
// on the line. Empty fields are preserved and quotes are left verbatim.
func SplitRow(line string) []string {
	remaining := strings.Count(line, `"`)
	fields := make([]string, 0, strings.Count(line, ",")+1)
	start := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			remaining--
		case ',':
			if remaining%2 == 0 {
				fields = append(fields, line[start:i])
				start = i + 1
			}
		}
	}
	return append(fields, line[start:])
}
