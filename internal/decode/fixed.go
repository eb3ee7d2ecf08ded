package decode

import (
	"io"
	"strings"

	"github.com/hyperjump/fileparse/internal/record"
)

// fixedDecoder slices each line into the schema's columns. Widths count
// characters, not bytes. Lines shorter than the schema are padded with spaces.
type fixedDecoder struct {
	lines  *lineReader
	schema Schema
	total  int
}

func newFixed(r io.Reader, opts Options) (Decoder, error) {
	return &fixedDecoder{
		lines:  newLineReader(r),
		schema: opts.Schema,
		total:  opts.Schema.TotalWidth(),
	}, nil
}

func (d *fixedDecoder) Next() (*record.Record, error) {
	line, no, err := d.lines.next()
	if err != nil {
		return nil, err
	}
	runes := []rune(line)
	for len(runes) < d.total {
		runes = append(runes, ' ')
	}
	rec := record.New()
	pos := 0
	for _, f := range d.schema {
		rec.Set(f.Name, strings.TrimSpace(string(runes[pos:pos+f.Width])))
		pos += f.Width
	}
	rec.Set(record.FieldFixedLine, no)
	return rec, nil
}
