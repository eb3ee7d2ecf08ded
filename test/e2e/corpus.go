// Package e2e provides end-to-end tests that render one corpus into every
// record-oriented format and check that parsing gives the same records back.
package e2e

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/fileparse/internal/decode"
)

// Document is one corpus entry. Every format renders it as a record with
// the fields id, title and content.
type Document struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
}

// FixedSchema is the fixed-width layout RenderCorpus uses for ".fixed".
var FixedSchema = decode.Schema{
	{Name: "id", Width: 8},
	{Name: "title", Width: 32},
	{Name: "content", Width: 160},
}

// CorpusExtensions lists the extensions RenderCorpus can produce. ".fixed"
// has no registered extension and must be parsed with an explicit format.
var CorpusExtensions = []string{
	".csv", ".tsv", ".json", ".ndjson", ".xml", ".yaml", ".ini", ".fixed", ".xlsx", ".sqlite",
}

var topics = [][2]string{
	{"Python Guide", "Python is a high-level programming language. Python programming language is used for web development and data science."},
	{"Kubernetes Docs", "Kubernetes is an open-source container orchestration platform. Kubernetes container orchestration automates deployment and scaling."},
	{"Go Language", "Go is a statically typed language. Go golang concurrency is achieved with goroutines and channels."},
	{"PostgreSQL Manual", "PostgreSQL is an advanced relational database. PostgreSQL relational database supports JSON and full-text search."},
	{"Café Résumé Ünïcode", "Non-ASCII text: naïve façade, 東京, Zoë. It must survive every format unchanged."},
	{"Quoting \"Edge\" Cases", "Commas, \"double quotes\" and a tab\tinside one value; semicolons # and hashes too."},
	{"CAP Theorem", "CAP says you cannot have all three. CAP theorem consistency availability partition tolerance."},
	{"Zero Trust", "Zero trust assumes breach. Zero trust security verifies every request."},
	{"Incident Response", "Incidents need a clear process. Incident response runbook defines steps."},
	{"Graceful Shutdown", "Graceful shutdown drains connections. Graceful shutdown signal handles SIGTERM."},
}

// BuildCorpus returns n documents cycling through a fixed set of topics.
func BuildCorpus(n int) []Document {
	docs := make([]Document, n)
	for i := range docs {
		t := topics[i%len(topics)]
		docs[i] = Document{ID: fmt.Sprintf("doc-%03d", i+1), Title: t[0], Content: t[1]}
	}
	return docs
}

// RenderCorpus writes docs as a file with extension ext in dir and returns its path.
func RenderCorpus(dir, ext string, docs []Document) (string, error) {
	path := filepath.Join(dir, "corpus"+ext)
	var data []byte
	var err error
	switch ext {
	case ".csv":
		data, err = renderDelimited(docs, ',')
	case ".tsv":
		data, err = renderDelimited(docs, '\t')
	case ".json":
		data, err = json.MarshalIndent(docs, "", "  ")
	case ".ndjson":
		data, err = renderNDJSON(docs)
	case ".xml":
		data, err = renderXML(docs)
	case ".yaml":
		data, err = yaml.Marshal(docs)
	case ".ini":
		data = renderINI(docs)
	case ".fixed":
		data = renderFixed(docs)
	case ".xlsx":
		data, err = renderXLSX(docs)
	case ".sqlite":
		return path, renderSQLite(path, docs)
	default:
		return "", fmt.Errorf("no corpus renderer for %s", ext)
	}
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, data, 0600)
}

func renderDelimited(docs []Document, comma rune) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = comma
	_ = w.Write([]string{"id", "title", "content"})
	for _, d := range docs {
		_ = w.Write([]string{d.ID, d.Title, d.Content})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func renderNDJSON(docs []Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func renderXML(docs []Document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<corpus>\n")
	for _, d := range docs {
		fmt.Fprintf(&buf, "  <doc id=\"%s\">", d.ID)
		for _, f := range [][2]string{{"title", d.Title}, {"content", d.Content}} {
			fmt.Fprintf(&buf, "<%s>", f[0])
			if err := xml.EscapeText(&buf, []byte(f[1])); err != nil {
				return nil, err
			}
			fmt.Fprintf(&buf, "</%s>", f[0])
		}
		buf.WriteString("</doc>\n")
	}
	buf.WriteString("</corpus>\n")
	return buf.Bytes(), nil
}

// renderINI writes one section per document. The id is repeated as a key so
// records carry it next to the section name.
func renderINI(docs []Document) []byte {
	var buf bytes.Buffer
	for _, d := range docs {
		fmt.Fprintf(&buf, "[%s]\nid = %s\ntitle = %s\ncontent = %s\n\n", d.ID, d.ID, d.Title, d.Content)
	}
	return buf.Bytes()
}

func renderFixed(docs []Document) []byte {
	var buf bytes.Buffer
	for _, d := range docs {
		// fmt pads by rune count, matching the decoder's character widths.
		fmt.Fprintf(&buf, "%-*s%-*s%-*s\n",
			FixedSchema[0].Width, d.ID,
			FixedSchema[1].Width, d.Title,
			FixedSchema[2].Width, d.Content)
	}
	return buf.Bytes()
}

func renderXLSX(docs []Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetRow("Sheet1", "A1", &[]any{"id", "title", "content"}); err != nil {
		return nil, err
	}
	for i, d := range docs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow("Sheet1", cell, &[]any{d.ID, d.Title, d.Content}); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderSQLite(path string, docs []Document) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TABLE docs (id TEXT PRIMARY KEY, title TEXT, content TEXT)`); err != nil {
		return err
	}
	for _, d := range docs {
		if _, err := db.Exec(`INSERT INTO docs (id, title, content) VALUES (?, ?, ?)`, d.ID, d.Title, d.Content); err != nil {
			return err
		}
	}
	return nil
}
