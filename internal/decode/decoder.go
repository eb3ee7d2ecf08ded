// Package decode turns byte streams into records, one strategy per format.
//
// Every decoder is lazy: New validates options and returns immediately, and
// input is consumed only as Next is called. Whole-document formats parse the
// document on the first call to Next and report syntax errors there.
package decode

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/fileparse/internal/format"
	"github.com/hyperjump/fileparse/internal/record"
)

var (
	// ErrMissingSchema is returned when fixed-width decoding has no schema.
	ErrMissingSchema = errors.New("fixed-width schema is required")
	// ErrInvalidSchema is returned for malformed schema specs or non-positive widths.
	ErrInvalidSchema = errors.New("invalid fixed-width schema")
	// ErrInvalidDelimiter is returned for delimiters the delimited decoder cannot use.
	ErrInvalidDelimiter = errors.New("invalid delimiter")
)

// Decoder produces records from a single input. Next returns io.EOF once the
// input is exhausted. Decoders that hold resources also implement io.Closer.
type Decoder interface {
	Next() (*record.Record, error)
}

// Options carries per-call settings. Decoders ignore the ones they do not use.
type Options struct {
	// Delimiter overrides the field separator of csv and tsv. Zero keeps the default.
	Delimiter rune
	// Schema describes fixed-width columns. Required by format.Fixed.
	Schema Schema
	// Name is the path of the input when known. The sqlite decoder opens it directly.
	Name string
}

type factory func(r io.Reader, opts Options) (Decoder, error)

var registry = map[format.Format]factory{
	format.CSV:        newDelimited(','),
	format.TSV:        newDelimited('\t'),
	format.JSON:       newJSON,
	format.NDJSON:     newNDJSON,
	format.XML:        newXML,
	format.INI:        newINI,
	format.Text:       newText,
	format.Unresolved: newText,
	format.Fixed:      newFixed,
	format.YAML:       newYAML,
	format.XLSX:       newExcel,
	format.ODS:        newODS,
	format.PDF:        newPDF,
	format.DOCX:       newDOCX,
	format.PPTX:       newPPTX,
	format.ODP:        newODP,
	format.SQLite:     newSQLite,
}

// New returns the decoder for f reading from r. Configuration problems
// (unsupported format, missing schema, bad delimiter) are reported here,
// before any input is read.
func New(f format.Format, r io.Reader, opts Options) (Decoder, error) {
	if err := Validate(f, opts); err != nil {
		return nil, err
	}
	return registry[f](r, opts)
}

// Validate reports the configuration errors New would return for f and opts
// without needing an input.
func Validate(f format.Format, opts Options) error {
	if !Supported(f) {
		return fmt.Errorf("%w: %s", format.ErrUnsupportedFormat, f)
	}
	switch f {
	case format.Fixed:
		if len(opts.Schema) == 0 {
			return ErrMissingSchema
		}
		return opts.Schema.Validate()
	case format.CSV, format.TSV:
		if opts.Delimiter != 0 {
			return validDelimiter(opts.Delimiter)
		}
	}
	return nil
}

// Supported reports whether f has a registered decoder.
func Supported(f format.Format) bool {
	_, ok := registry[f]
	return ok
}

// Field is one fixed-width column.
type Field struct {
	Name  string
	Width int
}

// Schema is an ordered list of fixed-width columns. Names are not required to
// be unique; a repeated name overwrites the earlier value in the record.
type Schema []Field

// TotalWidth returns the sum of all column widths.
func (s Schema) TotalWidth() int {
	total := 0
	for _, f := range s {
		total += f.Width
	}
	return total
}

// Validate checks that every width is positive.
func (s Schema) Validate() error {
	for _, f := range s {
		if f.Width <= 0 {
			return fmt.Errorf("%w: field %q has width %d", ErrInvalidSchema, f.Name, f.Width)
		}
	}
	return nil
}

// ParseSchema parses "name:width,name:width" as used on the command line.
func ParseSchema(s string) (Schema, error) {
	var schema Schema
	for _, part := range strings.Split(s, ",") {
		name, width, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q, expected name:width", ErrInvalidSchema, part)
		}
		w, err := strconv.Atoi(strings.TrimSpace(width))
		if err != nil {
			return nil, fmt.Errorf("%w: %q, width is not an integer", ErrInvalidSchema, part)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: %q, name is empty", ErrInvalidSchema, part)
		}
		schema = append(schema, Field{Name: name, Width: w})
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return schema, nil
}

// ParseDelimiter converts a user-supplied delimiter to a rune. The literal
// two-character sequence \t and the word "tab" both mean a tab.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%w: %q must be a single character", ErrInvalidDelimiter, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if err := validDelimiter(r); err != nil {
		return 0, err
	}
	return r, nil
}

func validDelimiter(r rune) error {
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError || !utf8.ValidRune(r) {
		return fmt.Errorf("%w: %q", ErrInvalidDelimiter, r)
	}
	return nil
}
