package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hyperjump/fileparse/internal/record"
)

// jsonDecoder parses the whole document on the first Next. An array yields
// one record per element, an object yields itself, and any other value is
// wrapped under record.FieldValue. Empty input yields no records.
type jsonDecoder struct {
	r      io.Reader
	items  []any
	loaded bool
	pos    int
}

func newJSON(r io.Reader, _ Options) (Decoder, error) {
	return &jsonDecoder{r: r}, nil
}

func (d *jsonDecoder) Next() (*record.Record, error) {
	if !d.loaded {
		d.loaded = true
		if err := d.load(); err != nil {
			return nil, err
		}
	}
	if d.pos >= len(d.items) {
		return nil, io.EOF
	}
	item := d.items[d.pos]
	d.pos++
	return asRecord(item), nil
}

func (d *jsonDecoder) load() error {
	dec := json.NewDecoder(d.r)
	dec.UseNumber()
	doc, err := decodeJSONValue(dec, 1)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("parse json: %w", err)
	}
	if err := expectJSONEOF(dec); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}
	if list, ok := doc.([]any); ok {
		d.items = list
	} else {
		d.items = []any{doc}
	}
	return nil
}

// asRecord returns v itself when it is an object, else {value: v}.
func asRecord(v any) *record.Record {
	if rec, ok := v.(*record.Record); ok {
		return rec
	}
	return record.Of(record.FieldValue, v)
}

var errTrailingData = errors.New("unexpected data after top-level value")

func expectJSONEOF(dec *json.Decoder) error {
	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return err
		}
		return errTrailingData
	}
	return nil
}

// maxJSONDepth bounds object and array nesting, as encoding/json does.
const maxJSONDepth = 10000

var errJSONTooDeep = fmt.Errorf("exceeded max nesting depth of %d", maxJSONDepth)

// decodeJSONValue reads one JSON value. Objects become *record.Record so key
// order survives; arrays become []any; numbers stay json.Number. depth is the
// nesting level of the value being read, starting at 1.
func decodeJSONValue(dec *json.Decoder, depth int) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	if depth > maxJSONDepth {
		return nil, errJSONTooDeep
	}
	switch delim {
	case '{':
		rec := record.New()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key is %T", keyTok)
			}
			v, err := decodeJSONValue(dec, depth+1)
			if err != nil {
				return nil, unexpectedEOF(err)
			}
			rec.Set(key, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, unexpectedEOF(err)
		}
		return rec, nil
	case '[':
		list := []any{}
		for dec.More() {
			v, err := decodeJSONValue(dec, depth+1)
			if err != nil {
				return nil, unexpectedEOF(err)
			}
			list = append(list, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, unexpectedEOF(err)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

// unexpectedEOF keeps a truncated document from looking like empty input.
func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
