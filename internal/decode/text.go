package decode

import (
	"io"

	"github.com/hyperjump/fileparse/internal/record"
)

// textDecoder yields every line, blank ones included, with its 1-based number.
type textDecoder struct {
	lines *lineReader
}

func newText(r io.Reader, _ Options) (Decoder, error) {
	return &textDecoder{lines: newLineReader(r)}, nil
}

func (d *textDecoder) Next() (*record.Record, error) {
	line, no, err := d.lines.next()
	if err != nil {
		return nil, err
	}
	return record.Of(record.FieldLineNo, no, record.FieldText, line), nil
}
