package decode

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/fileparse/internal/record"
)

// yamlDecoder reads one document at a time. A sequence document yields one
// record per element, a mapping yields itself, a scalar is wrapped under
// record.FieldValue and an empty document yields nothing.
type yamlDecoder struct {
	dec     *yaml.Decoder
	pending []any
	doc     int
}

func newYAML(r io.Reader, _ Options) (Decoder, error) {
	return &yamlDecoder{dec: yaml.NewDecoder(r)}, nil
}

func (d *yamlDecoder) Next() (*record.Record, error) {
	for len(d.pending) == 0 {
		var node yaml.Node
		if err := d.dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("parse yaml document %d: %w", d.doc+1, err)
		}
		d.doc++
		if len(node.Content) == 0 {
			continue
		}
		root := node.Content[0]
		if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
			continue
		}
		v, err := yamlValue(root)
		if err != nil {
			return nil, fmt.Errorf("parse yaml document %d: %w", d.doc, err)
		}
		if list, ok := v.([]any); ok {
			d.pending = list
		} else {
			d.pending = []any{v}
		}
	}
	v := d.pending[0]
	d.pending = d.pending[1:]
	return asRecord(v), nil
}

// yamlValue converts a node keeping mapping key order.
func yamlValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return yamlValue(n.Content[0])
	case yaml.AliasNode:
		return yamlValue(n.Alias)
	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := yamlValue(c)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case yaml.MappingNode:
		rec := record.New()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			v, err := yamlValue(val)
			if err != nil {
				return nil, err
			}
			if key.Tag == "!!merge" {
				if src, ok := v.(*record.Record); ok {
					src.Range(func(k string, mv any) bool {
						if _, exists := rec.Get(k); !exists {
							rec.Set(k, mv)
						}
						return true
					})
					continue
				}
			}
			rec.Set(key.Value, v)
		}
		return rec, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
