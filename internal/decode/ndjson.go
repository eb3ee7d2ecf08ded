package decode

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/hyperjump/fileparse/internal/record"
)

// ndjsonDecoder parses each non-blank line on its own. A line that is not a
// single JSON value is kept verbatim under record.FieldRaw and decoding continues.
type ndjsonDecoder struct {
	lines *lineReader
}

func newNDJSON(r io.Reader, _ Options) (Decoder, error) {
	return &ndjsonDecoder{lines: newLineReader(r)}, nil
}

func (d *ndjsonDecoder) Next() (*record.Record, error) {
	for {
		line, _, err := d.lines.next()
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		v, err := parseJSONLine(line)
		if err != nil {
			return record.Of(record.FieldRaw, line), nil
		}
		return asRecord(v), nil
	}
}

func parseJSONLine(line string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()
	v, err := decodeJSONValue(dec, 1)
	if err != nil {
		return nil, err
	}
	if err := expectJSONEOF(dec); err != nil {
		return nil, err
	}
	return v, nil
}
