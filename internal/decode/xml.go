package decode

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"

	"github.com/hyperjump/fileparse/internal/record"
)

var errMultipleRoots = errors.New("xml: document has more than one root element")

// xmlDecoder yields one record per direct child element of the root.
type xmlDecoder struct {
	r        io.Reader
	children []*etree.Element
	loaded   bool
	pos      int
}

func newXML(r io.Reader, _ Options) (Decoder, error) {
	return &xmlDecoder{r: r}, nil
}

func (d *xmlDecoder) Next() (*record.Record, error) {
	if !d.loaded {
		d.loaded = true
		if err := d.load(); err != nil {
			return nil, err
		}
	}
	if d.pos >= len(d.children) {
		return nil, io.EOF
	}
	el := d.children[d.pos]
	d.pos++
	return elementRecord(el), nil
}

func (d *xmlDecoder) load() error {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(d.r); err != nil {
		return fmt.Errorf("parse xml: %w", err)
	}
	var root *etree.Element
	for _, tok := range doc.Child {
		switch t := tok.(type) {
		case *etree.Element:
			if root != nil {
				return errMultipleRoots
			}
			root = t
		case *etree.CharData:
			if strings.TrimSpace(t.Data) != "" {
				return fmt.Errorf("parse xml: text outside the root element")
			}
		}
	}
	if root != nil {
		d.children = root.ChildElements()
	}
	return nil
}

// elementRecord flattens one element: attributes, then child elements by tag.
// A tag seen twice turns the field into a list.
func elementRecord(el *etree.Element) *record.Record {
	rec := record.New()
	for i := range el.Attr {
		a := &el.Attr[i]
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		rec.Set(a.FullKey(), a.Value)
	}
	for _, sub := range el.ChildElements() {
		tag := sub.FullTag()
		var v any
		if text := sub.Text(); text != "" {
			v = text
		}
		prev, ok := rec.Get(tag)
		if !ok {
			rec.Set(tag, v)
			continue
		}
		if list, isList := prev.([]any); isList {
			rec.Set(tag, append(list, v))
		} else {
			rec.Set(tag, []any{prev, v})
		}
	}
	if rec.Len() == 0 {
		if text := strings.TrimSpace(el.Text()); text != "" {
			rec.Set(record.FieldText, text)
		}
	}
	return rec
}
