package decode

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/hyperjump/fileparse/internal/record"
)

// pdfDecoder yields {page, text} per page. Pages without content are skipped.
type pdfDecoder struct {
	r      io.Reader
	doc    *pdf.Reader
	next   int
	loaded bool
}

func newPDF(r io.Reader, _ Options) (Decoder, error) {
	return &pdfDecoder{r: r}, nil
}

func (d *pdfDecoder) Next() (*record.Record, error) {
	if !d.loaded {
		d.loaded = true
		content, err := io.ReadAll(d.r)
		if err != nil {
			return nil, fmt.Errorf("read PDF: %w", err)
		}
		d.doc, err = pdf.NewReader(bytes.NewReader(content), int64(len(content)))
		if err != nil {
			return nil, fmt.Errorf("open PDF: %w", err)
		}
	}
	if d.doc == nil {
		return nil, io.EOF
	}
	for d.next < d.doc.NumPage() {
		d.next++
		page := d.doc.Page(d.next)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", d.next, err)
		}
		return record.Of("page", d.next, record.FieldText, text), nil
	}
	return nil, io.EOF
}
