package format

import (
	"errors"
	"reflect"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"data.csv", CSV},
		{"DATA.CSV", CSV},
		{"data.tsv", TSV},
		{"data.tab", TSV},
		{"data.json", JSON},
		{"data.ndjson", NDJSON},
		{"data.jsonl", NDJSON},
		{"feed.xml", XML},
		{"setup.ini", INI},
		{"setup.cfg", INI},
		{"notes.txt", Text},
		{"server.log", Text},
		{"conf.yaml", YAML},
		{"conf.yml", YAML},
		{"book.xlsx", XLSX},
		{"sheet.ods", ODS},
		{"paper.pdf", PDF},
		{"letter.docx", DOCX},
		{"deck.pptx", PPTX},
		{"deck.odp", ODP},
		{"app.sqlite", SQLite},
		{"app.db", SQLite},
		{"/tmp/dir.csv/file", Unresolved},
		{"README", Unresolved},
		{"archive.tar.gz", Unresolved},
		{"", Unresolved},
		{".csv", Unresolved},
		{"dir/.hidden.csv", CSV},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := Resolve(tt.path); got != tt.want {
				t.Errorf("Resolve(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		want Format
	}{
		{"csv", CSV},
		{"CSV", CSV},
		{" tsv ", TSV},
		{"json", JSON},
		{"ndjson", NDJSON},
		{"jsonl", NDJSON},
		{"xml", XML},
		{"ini", INI},
		{"text", Text},
		{"log", Text},
		{"fixed", Fixed},
		{"unknown", Unresolved},
		{"yml", YAML},
		{"sqlite3", SQLite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.name)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestParse_unsupported(t *testing.T) {
	_, err := Parse("parquet")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
	if got := err.Error(); got != "unsupported format: parquet" {
		t.Errorf("message = %q", got)
	}
}

func TestFormat_String(t *testing.T) {
	if NDJSON.String() != "ndjson" {
		t.Errorf("got %s", NDJSON)
	}
	if got := Format(99).String(); got != "format(99)" {
		t.Errorf("got %s", got)
	}
}

func TestFormat_Binary(t *testing.T) {
	for _, f := range All() {
		want := f == XLSX || f == ODS || f == PDF || f == DOCX || f == PPTX || f == ODP || f == SQLite
		if f.Binary() != want {
			t.Errorf("%v.Binary() = %v", f, f.Binary())
		}
	}
}

func TestFormat_Extensions(t *testing.T) {
	if got := TSV.Extensions(); !reflect.DeepEqual(got, []string{".tab", ".tsv"}) {
		t.Errorf("TSV extensions = %v", got)
	}
	if got := Fixed.Extensions(); got != nil {
		t.Errorf("Fixed extensions = %v, want none", got)
	}
}

func TestAll_RoundTripsThroughParse(t *testing.T) {
	for _, f := range All() {
		got, err := Parse(f.String())
		if err != nil || got != f {
			t.Errorf("Parse(%q) = %v, %v", f.String(), got, err)
		}
	}
}
