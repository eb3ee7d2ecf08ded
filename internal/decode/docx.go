package decode

import (
	"archive/zip"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/hyperjump/fileparse/internal/record"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// docxMainContentType is the content type for the main document in DOCX files.
const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

var (
	// wpTag matches one <w:p> paragraph. <w:pPr> and self-closing <w:p/> do not match.
	wpTag = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*[^/])?>(.*?)</w:p>`)
	// wtTag matches <w:t>text</w:t> or <w:t xml:space="preserve">text</w:t> (and any other attributes).
	wtTag = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	// partNameRe extracts PartName from Override elements in [Content_Types].xml.
	partNameRe = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	// partNameRe2 handles the case where ContentType appears before PartName.
	partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
// Returns the path without leading slash, or empty string if not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	data, err := readZipFile(zr, contentTypesPath)
	if err != nil || data == nil {
		return ""
	}
	content := string(data)
	if m := partNameRe.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	if m := partNameRe2.FindStringSubmatch(content); len(m) > 1 {
		return strings.TrimPrefix(m[1], "/")
	}
	return ""
}

type docxParagraph struct {
	no   int
	text string
}

// docxDecoder yields {paragraph, text} for every paragraph with text.
// paragraph is the 1-based position among all paragraphs of the body.
type docxDecoder struct {
	r          io.Reader
	paragraphs []docxParagraph
	loaded     bool
	pos        int
}

func newDOCX(r io.Reader, _ Options) (Decoder, error) {
	return &docxDecoder{r: r}, nil
}

func (d *docxDecoder) Next() (*record.Record, error) {
	if !d.loaded {
		d.loaded = true
		if err := d.load(); err != nil {
			return nil, err
		}
	}
	if d.pos >= len(d.paragraphs) {
		return nil, io.EOF
	}
	p := d.paragraphs[d.pos]
	d.pos++
	return record.Of("paragraph", p.no, record.FieldText, p.text), nil
}

func (d *docxDecoder) load() error {
	zr, err := openZip(d.r, "docx")
	if err != nil {
		return err
	}
	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	docXML, err := readZipFile(zr, docPath)
	if err != nil {
		return fmt.Errorf("read docx: %w", err)
	}
	if docXML == nil {
		return fmt.Errorf("read docx: %s not found", docPath)
	}
	for i, m := range wpTag.FindAllStringSubmatch(string(docXML), -1) {
		text := strings.TrimSpace(runText(wtTag, m[1]))
		if text == "" {
			continue
		}
		d.paragraphs = append(d.paragraphs, docxParagraph{no: i + 1, text: text})
	}
	return nil
}
