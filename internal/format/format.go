// Package format maps file names and user-supplied names to record formats.
package format

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupportedFormat is returned for format names or tags with no decoder.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Format identifies how a source is decoded into records.
type Format int

const (
	// Unresolved is used when no format was given and the extension is unknown.
	// It decodes as plain text.
	Unresolved Format = iota
	CSV
	TSV
	JSON
	NDJSON
	XML
	INI
	Text
	Fixed
	YAML
	XLSX
	ODS
	PDF
	DOCX
	PPTX
	ODP
	SQLite
)

var names = map[Format]string{
	Unresolved: "unknown",
	CSV:        "csv",
	TSV:        "tsv",
	JSON:       "json",
	NDJSON:     "ndjson",
	XML:        "xml",
	INI:        "ini",
	Text:       "text",
	Fixed:      "fixed",
	YAML:       "yaml",
	XLSX:       "xlsx",
	ODS:        "ods",
	PDF:        "pdf",
	DOCX:       "docx",
	PPTX:       "pptx",
	ODP:        "odp",
	SQLite:     "sqlite",
}

// aliases are accepted by Parse in addition to the canonical names.
var aliases = map[string]Format{
	"jsonl":   NDJSON,
	"log":     Text,
	"yml":     YAML,
	"sqlite3": SQLite,
}

var extensions = map[string]Format{
	".csv":     CSV,
	".tsv":     TSV,
	".tab":     TSV,
	".json":    JSON,
	".ndjson":  NDJSON,
	".jsonl":   NDJSON,
	".xml":     XML,
	".ini":     INI,
	".cfg":     INI,
	".txt":     Text,
	".log":     Text,
	".yaml":    YAML,
	".yml":     YAML,
	".xlsx":    XLSX,
	".ods":     ODS,
	".pdf":     PDF,
	".docx":    DOCX,
	".pptx":    PPTX,
	".odp":     ODP,
	".sqlite":  SQLite,
	".sqlite3": SQLite,
	".db":      SQLite,
}

// String returns the canonical name of the format.
func (f Format) String() string {
	if n, ok := names[f]; ok {
		return n
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// Binary reports whether the format is read as raw bytes rather than text.
func (f Format) Binary() bool {
	switch f {
	case XLSX, ODS, PDF, DOCX, PPTX, ODP, SQLite:
		return true
	}
	return false
}

// Extensions returns the file extensions that resolve to f, sorted.
func (f Format) Extensions() []string {
	var out []string
	for ext, ef := range extensions {
		if ef == f {
			out = append(out, ext)
		}
	}
	sort.Strings(out)
	return out
}

// Resolve returns the format for path based on its lowercase extension.
// Unknown or missing extensions yield Unresolved. Leading dots of the base
// name do not start an extension, so ".csv" has none.
func Resolve(path string) Format {
	base := strings.TrimLeft(filepath.Base(path), ".")
	ext := strings.ToLower(filepath.Ext(base))
	if f, ok := extensions[ext]; ok {
		return f
	}
	return Unresolved
}

// Parse converts a user-supplied format name (case-insensitive) to a Format.
func Parse(name string) (Format, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for f, canonical := range names {
		if canonical == n {
			return f, nil
		}
	}
	if f, ok := aliases[n]; ok {
		return f, nil
	}
	return Unresolved, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// All returns every format in declaration order.
func All() []Format {
	out := make([]Format, 0, len(names))
	for f := Unresolved; f <= SQLite; f++ {
		out = append(out, f)
	}
	return out
}
