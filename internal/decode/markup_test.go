package decode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/fileparse/internal/format"
	"github.com/hyperjump/fileparse/internal/record"
)

func TestXMLChildren(t *testing.T) {
	input := `<?xml version="1.0"?>
<root xmlns:x="urn:x">
  <item id="1"><name>A<b>ignored</b></name><tag>t1</tag><tag>t2</tag><tag/><empty/></item>
  <item>  hello  </item>
  <item/>
  <x:item xmlns:y="urn:y" x:k="v"><x:c>z</x:c></x:item>
  <item kind="attr"><kind>child</kind></item>
</root>`
	recs := decodeAll(t, format.XML, input, Options{})
	require.Len(t, recs, 5)

	assert.Equal(t, []string{"id", "name", "tag", "empty"}, recs[0].Keys())
	assert.Equal(t, map[string]any{
		"id":    "1",
		"name":  "A",
		"tag":   []any{"t1", "t2", nil},
		"empty": nil,
	}, recs[0].Map())
	assert.Equal(t, map[string]any{"text": "hello"}, recs[1].Map())
	assert.Equal(t, 0, recs[2].Len())
	assert.Equal(t, map[string]any{"x:k": "v", "x:c": "z"}, recs[3].Map())
	assert.Equal(t, map[string]any{"kind": []any{"attr", "child"}}, recs[4].Map())
}

func TestXMLRootWithoutChildren(t *testing.T) {
	assert.Empty(t, decodeAll(t, format.XML, "<root>text only</root>", Options{}))
	assert.Empty(t, decodeAll(t, format.XML, "  \n", Options{}))
}

func TestXMLErrors(t *testing.T) {
	assert.Error(t, firstErr(t, format.XML, "<root><a></root>"))
	assert.Error(t, firstErr(t, format.XML, "<root><a>"))
	assert.True(t, errors.Is(firstErr(t, format.XML, "<a/><b/>"), errMultipleRoots))
	assert.Error(t, firstErr(t, format.XML, "<a/>trailing"))
}

func TestINISections(t *testing.T) {
	input := `; leading comment
[DEFAULT]
Base = /srv
mode = ro

[app]
path = %(base)s/app
mode = rw
Name = demo ; not a comment

[empty]
`
	recs := decodeAll(t, format.INI, input, Options{})
	require.Len(t, recs, 2)

	assert.Equal(t, []string{record.FieldSection, "base", "mode", "path", "name"}, recs[0].Keys())
	assert.Equal(t, map[string]any{
		record.FieldSection: "app",
		"base":              "/srv",
		"mode":              "rw",
		"path":              "/srv/app",
		"name":              "demo ; not a comment",
	}, recs[0].Map())
	assert.Equal(t, map[string]any{
		record.FieldSection: "empty",
		"base":              "/srv",
		"mode":              "ro",
	}, recs[1].Map())
}

func TestINIKeepsSectionCase(t *testing.T) {
	recs := decodeAll(t, format.INI, "[Server]\nHost = a\n", Options{})
	require.Len(t, recs, 1)
	assert.Equal(t, map[string]any{record.FieldSection: "Server", "host": "a"}, recs[0].Map())
}

func TestINIDefaultsOnlyYieldsNothing(t *testing.T) {
	assert.Empty(t, decodeAll(t, format.INI, "a = 1\nb = 2\n", Options{}))
}

func TestYAMLDocuments(t *testing.T) {
	input := `b: 1
a: [x, y]
---
- k: v
- 3
---
---
hello
`
	recs := decodeAll(t, format.YAML, input, Options{})
	require.Len(t, recs, 4)
	assert.Equal(t, []string{"b", "a"}, recs[0].Keys())
	assert.Equal(t, []map[string]any{
		{"b": 1, "a": []any{"x", "y"}},
		{"k": "v"},
		{"value": 3},
		{"value": "hello"},
	}, maps(recs))
}

func TestYAMLAliasesAndMerge(t *testing.T) {
	input := `- &base
  host: a
  port: 1
- <<: *base
  port: 2
`
	recs := decodeAll(t, format.YAML, input, Options{})
	require.Len(t, recs, 2)
	assert.Equal(t, []string{"host", "port"}, recs[1].Keys())
	assert.Equal(t, map[string]any{"host": "a", "port": 2}, recs[1].Map())
}

func TestYAMLSyntaxError(t *testing.T) {
	err := firstErr(t, format.YAML, "a: [1\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yaml document 1")
}
