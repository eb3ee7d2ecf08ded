// Package cli renders records for the fileparse command.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/fileparse/internal/record"
	"github.com/hyperjump/fileparse/pkg/utils"
)

// OutputFormat is the format for record output.
type OutputFormat string

const (
	// OutputJSONL writes one JSON object per line as records arrive.
	OutputJSONL OutputFormat = "jsonl"
	// OutputJSON writes a JSON array.
	OutputJSON OutputFormat = "json"
	// OutputYAML writes a YAML sequence.
	OutputYAML OutputFormat = "yaml"
	// OutputTable writes an aligned text table. Records are buffered until Close.
	OutputTable OutputFormat = "table"
)

// maxCellWidth caps table cells so one long value cannot push the table off screen.
const maxCellWidth = 40

// ParseOutputFormat validates an output format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputJSONL, OutputJSON, OutputYAML, OutputTable:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want jsonl, json, yaml or table)", s)
}

// RecordWriter writes records one at a time. Close finishes the document and
// must be called even when no record was written.
type RecordWriter interface {
	Write(rec *record.Record) error
	Close() error
}

// NewRecordWriter returns a writer for format. Unknown formats fall back to jsonl.
func NewRecordWriter(w io.Writer, format OutputFormat) RecordWriter {
	switch format {
	case OutputJSON:
		return &jsonWriter{w: w}
	case OutputYAML:
		return &yamlWriter{w: w}
	case OutputTable:
		return &tableWriter{w: w}
	default:
		return &jsonlWriter{w: w}
	}
}

// WriteRecords writes all records to w in the given format.
func WriteRecords(w io.Writer, recs []*record.Record, format OutputFormat) error {
	rw := NewRecordWriter(w, format)
	for _, rec := range recs {
		if err := rw.Write(rec); err != nil {
			return err
		}
	}
	return rw.Close()
}

type jsonlWriter struct {
	w io.Writer
}

func (j *jsonlWriter) Write(rec *record.Record) error {
	b, err := rec.MarshalJSON()
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = j.w.Write(b)
	return err
}

func (j *jsonlWriter) Close() error { return nil }

type jsonWriter struct {
	w     io.Writer
	count int
}

func (j *jsonWriter) Write(rec *record.Record) error {
	b, err := rec.MarshalJSON()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if j.count == 0 {
		buf.WriteString("[\n  ")
	} else {
		buf.WriteString(",\n  ")
	}
	if err := json.Indent(&buf, b, "  ", "  "); err != nil {
		return err
	}
	j.count++
	_, err = j.w.Write(buf.Bytes())
	return err
}

func (j *jsonWriter) Close() error {
	closing := "\n]\n"
	if j.count == 0 {
		closing = "[]\n"
	}
	_, err := io.WriteString(j.w, closing)
	return err
}

// yamlWriter emits each record as a one-item sequence; the concatenation is
// a single YAML sequence.
type yamlWriter struct {
	w     io.Writer
	count int
}

func (y *yamlWriter) Write(rec *record.Record) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode([]*record.Record{rec}); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	y.count++
	_, err := y.w.Write(buf.Bytes())
	return err
}

func (y *yamlWriter) Close() error {
	if y.count == 0 {
		_, err := io.WriteString(y.w, "[]\n")
		return err
	}
	return nil
}

type tableWriter struct {
	w    io.Writer
	recs []*record.Record
}

func (t *tableWriter) Write(rec *record.Record) error {
	t.recs = append(t.recs, rec)
	return nil
}

// Close renders the buffered records. Columns are the union of field names
// in first-seen order.
func (t *tableWriter) Close() error {
	if len(t.recs) == 0 {
		_, err := io.WriteString(t.w, "(no records)\n")
		return err
	}
	var cols []string
	index := make(map[string]int)
	for _, rec := range t.recs {
		for _, k := range rec.Keys() {
			if _, ok := index[k]; !ok {
				index[k] = len(cols)
				cols = append(cols, k)
			}
		}
	}
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = utils.Width(utils.Truncate(c, maxCellWidth))
	}
	rows := make([][]string, len(t.recs))
	for r, rec := range t.recs {
		row := make([]string, len(cols))
		for i, c := range cols {
			v, ok := rec.Get(c)
			if !ok {
				continue
			}
			row[i] = utils.Truncate(cellText(v), maxCellWidth)
			widths[i] = max(widths[i], utils.Width(row[i]))
		}
		rows[r] = row
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			if i == len(cells)-1 {
				b.WriteString(cell)
			} else {
				b.WriteString(utils.PadRight(cell, widths[i]))
			}
		}
		b.WriteByte('\n')
	}
	header := make([]string, len(cols))
	rule := make([]string, len(cols))
	for i, c := range cols {
		header[i] = utils.Truncate(c, maxCellWidth)
		rule[i] = strings.Repeat("-", widths[i])
	}
	writeRow(header)
	writeRow(rule)
	for _, row := range rows {
		writeRow(row)
	}
	_, err := io.WriteString(t.w, b.String())
	return err
}

// cellText renders a value for a table cell: strings as-is, nil as empty,
// anything else as compact JSON.
func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.ReplaceAll(x, "\n", `\n`)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
