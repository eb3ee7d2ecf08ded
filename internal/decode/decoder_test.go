package decode

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/fileparse/internal/format"
	"github.com/hyperjump/fileparse/internal/record"
)

// decodeAll drains a decoder built for input and closes it when it holds resources.
func decodeAll(t *testing.T, f format.Format, input string, opts Options) []*record.Record {
	t.Helper()
	return decodeReader(t, f, strings.NewReader(input), opts)
}

func decodeReader(t *testing.T, f format.Format, r io.Reader, opts Options) []*record.Record {
	t.Helper()
	dec, err := New(f, r, opts)
	require.NoError(t, err)
	if c, ok := dec.(io.Closer); ok {
		defer func() { assert.NoError(t, c.Close()) }()
	}
	var out []*record.Record
	for {
		rec, err := dec.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

// firstErr returns the first error Next reports other than io.EOF.
func firstErr(t *testing.T, f format.Format, input string) error {
	t.Helper()
	dec, err := New(f, strings.NewReader(input), Options{})
	require.NoError(t, err)
	for {
		_, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func maps(recs []*record.Record) []map[string]any {
	out := make([]map[string]any, len(recs))
	for i, r := range recs {
		out[i] = r.Map()
	}
	return out
}

func TestNewUnsupportedFormat(t *testing.T) {
	_, err := New(format.Format(999), strings.NewReader(""), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, format.ErrUnsupportedFormat))
	assert.Contains(t, err.Error(), "format(999)")
}

func TestEveryFormatIsSupported(t *testing.T) {
	for _, f := range format.All() {
		assert.True(t, Supported(f), "format %s has no decoder", f)
	}
	assert.True(t, Supported(format.Unresolved))
}

func TestEmptyInputYieldsNoRecords(t *testing.T) {
	for _, f := range []format.Format{format.CSV, format.TSV, format.JSON, format.NDJSON, format.XML, format.INI, format.Text, format.YAML} {
		t.Run(f.String(), func(t *testing.T) {
			assert.Empty(t, decodeAll(t, f, "", Options{}))
		})
	}
	t.Run("fixed", func(t *testing.T) {
		assert.Empty(t, decodeAll(t, format.Fixed, "", Options{Schema: Schema{{Name: "a", Width: 1}}}))
	})
}

func TestDelimitedShortAndLongRows(t *testing.T) {
	recs := decodeAll(t, format.CSV, "a,b,c\n1,2\n\n1,2,3,4\n", Options{})
	require.Len(t, recs, 2)
	assert.Equal(t, []string{"a", "b", "c"}, recs[0].Keys())
	assert.Equal(t, map[string]any{"a": "1", "b": "2", "c": nil}, recs[0].Map())
	assert.Equal(t, []string{"a", "b", "c", record.FieldExtra}, recs[1].Keys())
	assert.Equal(t, map[string]any{"a": "1", "b": "2", "c": "3", record.FieldExtra: []any{"4"}}, recs[1].Map())
}

func TestDelimitedHeaderOnly(t *testing.T) {
	assert.Empty(t, decodeAll(t, format.CSV, "a,b\n", Options{}))
}

func TestDelimitedQuotingAndOverride(t *testing.T) {
	recs := decodeAll(t, format.CSV, "name;note\n\"Smith; J\";say \"hi\"\n", Options{Delimiter: ';'})
	require.Len(t, recs, 1)
	assert.Equal(t, map[string]any{"name": "Smith; J", "note": `say "hi"`}, recs[0].Map())

	recs = decodeAll(t, format.TSV, "a\tb\nx\ty\n", Options{})
	require.Len(t, recs, 1)
	assert.Equal(t, map[string]any{"a": "x", "b": "y"}, recs[0].Map())

	recs = decodeAll(t, format.TSV, "a|b\nx|y\n", Options{Delimiter: '|'})
	require.Len(t, recs, 1)
	assert.Equal(t, map[string]any{"a": "x", "b": "y"}, recs[0].Map())
}

func TestDelimitedRejectsBadDelimiter(t *testing.T) {
	for _, d := range []rune{'"', '\n', '\r'} {
		_, err := New(format.CSV, strings.NewReader("a\n"), Options{Delimiter: d})
		assert.ErrorIs(t, err, ErrInvalidDelimiter, "delimiter %q", d)
	}
}

func TestJSONDocument(t *testing.T) {
	recs := decodeAll(t, format.JSON, `[{"b":1,"a":{"y":true,"x":null}}, 3, "s", [1]]`, Options{})
	require.Len(t, recs, 4)
	assert.Equal(t, []string{"b", "a"}, recs[0].Keys())
	nested, _ := recs[0].Get("a")
	assert.Equal(t, []string{"y", "x"}, nested.(*record.Record).Keys())
	assert.Equal(t, []map[string]any{
		{"b": json.Number("1"), "a": map[string]any{"y": true, "x": nil}},
		{"value": json.Number("3")},
		{"value": "s"},
		{"value": []any{json.Number("1")}},
	}, maps(recs))

	recs = decodeAll(t, format.JSON, `{"k":"v"}`, Options{})
	assert.Equal(t, []map[string]any{{"k": "v"}}, maps(recs))

	recs = decodeAll(t, format.JSON, `  42 `, Options{})
	assert.Equal(t, []map[string]any{{"value": json.Number("42")}}, maps(recs))

	assert.Empty(t, decodeAll(t, format.JSON, " \n\t", Options{}))
	assert.Empty(t, decodeAll(t, format.JSON, "[]", Options{}))
}

func TestJSONErrorsOnFirstNext(t *testing.T) {
	for name, input := range map[string]string{
		"truncated": `[1,`,
		"trailing":  `{"a":1} x`,
		"two":       `{"a":1} {"b":2}`,
		"syntax":    `{"a" 1}`,
	} {
		t.Run(name, func(t *testing.T) {
			dec, err := New(format.JSON, strings.NewReader(input), Options{})
			require.NoError(t, err)
			_, err = dec.Next()
			require.Error(t, err)
			assert.NotEqual(t, io.EOF, err)
		})
	}
}

func TestJSONNestingLimit(t *testing.T) {
	deep := strings.Repeat("[", 20000) + strings.Repeat("]", 20000)
	dec, err := New(format.JSON, strings.NewReader(deep), Options{})
	require.NoError(t, err)
	_, err = dec.Next()
	require.ErrorIs(t, err, errJSONTooDeep)

	ok := strings.Repeat("[", 100) + strings.Repeat("]", 100)
	assert.Len(t, decodeAll(t, format.JSON, ok, Options{}), 1)
}

func TestNDJSONDeepLineBecomesRaw(t *testing.T) {
	deep := strings.Repeat("{\"a\":", 20000) + "1" + strings.Repeat("}", 20000)
	recs := decodeAll(t, format.NDJSON, "{\"a\":1}\n"+deep+"\n{\"a\":2}\n", Options{})
	require.Len(t, recs, 3)
	assert.Equal(t, map[string]any{"raw": deep}, recs[1].Map())
	assert.Equal(t, map[string]any{"a": json.Number("2")}, recs[2].Map())
}

func TestNDJSONRecoversPerLine(t *testing.T) {
	input := "{\"a\":1}\r\n  not json  \n\n[1]\n\"s\"\n{\"b\":2} junk\n{\"c\":3}"
	recs := decodeAll(t, format.NDJSON, input, Options{})
	assert.Equal(t, []map[string]any{
		{"a": json.Number("1")},
		{"raw": "not json"},
		{"value": []any{json.Number("1")}},
		{"value": "s"},
		{"raw": `{"b":2} junk`},
		{"c": json.Number("3")},
	}, maps(recs))
}

func TestNDJSONThreeLinesWithBadMiddle(t *testing.T) {
	recs := decodeAll(t, format.NDJSON, "{\"a\":1}\nnot json\n{\"a\":2}\n", Options{})
	require.Len(t, recs, 3)
	assert.Equal(t, map[string]any{"raw": "not json"}, recs[1].Map())
}

func TestText(t *testing.T) {
	recs := decodeAll(t, format.Text, "a\r\nb\n\nc", Options{})
	assert.Equal(t, []map[string]any{
		{"line_no": 1, "text": "a"},
		{"line_no": 2, "text": "b"},
		{"line_no": 3, "text": ""},
		{"line_no": 4, "text": "c"},
	}, maps(recs))
	assert.Equal(t, []string{"line_no", "text"}, recs[0].Keys())

	unresolved := decodeAll(t, format.Unresolved, "x\n", Options{})
	assert.Equal(t, []map[string]any{{"line_no": 1, "text": "x"}}, maps(unresolved))
}

func TestFixedWidth(t *testing.T) {
	schema := Schema{{Name: "name", Width: 4}, {Name: "age", Width: 2}}
	recs := decodeAll(t, format.Fixed, "Al  5 \nBobby99\nZ\n", Options{Schema: schema})
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"name", "age", record.FieldFixedLine}, recs[0].Keys())
	assert.Equal(t, map[string]any{"name": "Al", "age": "5", "_line_no": 1}, recs[0].Map())
	assert.Equal(t, map[string]any{"name": "Bobb", "age": "y9", "_line_no": 2}, recs[1].Map())
	assert.Equal(t, map[string]any{"name": "Z", "age": "", "_line_no": 3}, recs[2].Map())
}

func TestFixedWidthCountsRunes(t *testing.T) {
	schema := Schema{{Name: "a", Width: 2}, {Name: "b", Width: 2}}
	recs := decodeAll(t, format.Fixed, "éüxy\n", Options{Schema: schema})
	require.Len(t, recs, 1)
	assert.Equal(t, map[string]any{"a": "éü", "b": "xy", "_line_no": 1}, recs[0].Map())
}

func TestFixedWidthDuplicateNameOverwrites(t *testing.T) {
	schema := Schema{{Name: "a", Width: 1}, {Name: "a", Width: 1}}
	recs := decodeAll(t, format.Fixed, "xy\n", Options{Schema: schema})
	require.Len(t, recs, 1)
	assert.Equal(t, map[string]any{"a": "y", "_line_no": 1}, recs[0].Map())
}

func TestFixedWidthSchemaErrorsBeforeReading(t *testing.T) {
	r := &countingReader{r: strings.NewReader("abc\n")}
	_, err := New(format.Fixed, r, Options{})
	assert.ErrorIs(t, err, ErrMissingSchema)
	_, err = New(format.Fixed, r, Options{Schema: Schema{{Name: "a", Width: 0}}})
	assert.ErrorIs(t, err, ErrInvalidSchema)
	assert.Zero(t, r.n)
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func TestParseSchema(t *testing.T) {
	got, err := ParseSchema("name:4, age:2")
	require.NoError(t, err)
	assert.Equal(t, Schema{{Name: "name", Width: 4}, {Name: "age", Width: 2}}, got)
	assert.Equal(t, 6, got.TotalWidth())

	for _, bad := range []string{"name", "name:x", "name:0", ":3", "a:1,,b:2"} {
		_, err := ParseSchema(bad)
		assert.ErrorIs(t, err, ErrInvalidSchema, "input %q", bad)
	}
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in   string
		want rune
	}{
		{",", ','},
		{";", ';'},
		{`\t`, '\t'},
		{"tab", '\t'},
		{"|", '|'},
	}
	for _, tt := range tests {
		got, err := ParseDelimiter(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	for _, bad := range []string{"", ";;", `"`} {
		_, err := ParseDelimiter(bad)
		assert.ErrorIs(t, err, ErrInvalidDelimiter, "delimiter %q", bad)
	}
}
