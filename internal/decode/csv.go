package decode

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/hyperjump/fileparse/internal/record"
)

// delimitedDecoder reads a header row and yields one record per following row.
type delimitedDecoder struct {
	r      *csv.Reader
	header []string
}

func newDelimited(defaultDelim rune) factory {
	return func(r io.Reader, opts Options) (Decoder, error) {
		delim := defaultDelim
		if opts.Delimiter != 0 {
			delim = opts.Delimiter
		}
		cr := csv.NewReader(r)
		cr.Comma = delim
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = true
		return &delimitedDecoder{r: cr}, nil
	}
}

func (d *delimitedDecoder) Next() (*record.Record, error) {
	if d.header == nil {
		header, err := d.r.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		d.header = header
	}
	row, err := d.r.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("read row: %w", err)
	}
	rec := record.New()
	fillRow(rec, d.header, row)
	return rec, nil
}

// fillRow sets one field per header column. Missing trailing values are nil
// and values past the header are collected under record.FieldExtra.
func fillRow(rec *record.Record, header, row []string) {
	for i, name := range header {
		if i < len(row) {
			rec.Set(name, row[i])
		} else {
			rec.Set(name, nil)
		}
	}
	if len(row) > len(header) {
		extra := make([]any, 0, len(row)-len(header))
		for _, v := range row[len(header):] {
			extra = append(extra, v)
		}
		rec.Set(record.FieldExtra, extra)
	}
}
