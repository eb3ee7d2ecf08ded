package decode

import (
	"io"
	"strings"

	"github.com/beevik/etree"

	"github.com/hyperjump/fileparse/internal/record"
)

type odpPage struct {
	no   int
	text string
}

// odpDecoder yields {page, text} per draw:page of an OpenDocument presentation.
type odpDecoder struct {
	r      io.Reader
	pages  []odpPage
	loaded bool
	pos    int
}

func newODP(r io.Reader, _ Options) (Decoder, error) {
	return &odpDecoder{r: r}, nil
}

func (d *odpDecoder) Next() (*record.Record, error) {
	if !d.loaded {
		d.loaded = true
		if err := d.load(); err != nil {
			return nil, err
		}
	}
	if d.pos >= len(d.pages) {
		return nil, io.EOF
	}
	p := d.pages[d.pos]
	d.pos++
	return record.Of("page", p.no, record.FieldText, p.text), nil
}

func (d *odpDecoder) load() error {
	root, err := readODFContent(d.r, "odp")
	if err != nil {
		return err
	}
	walkElements(root, func(el *etree.Element) bool {
		if !isODF(el, "draw", "page") {
			return true
		}
		d.pages = append(d.pages, odpPage{no: len(d.pages) + 1, text: odpPageText(el)})
		return false
	})
	return nil
}

// odpPageText joins the non-blank text:p and text:h elements of a page.
func odpPageText(page *etree.Element) string {
	var lines []string
	walkElements(page, func(el *etree.Element) bool {
		if isODF(el, "text", "p") || isODF(el, "text", "h") {
			if line := strings.TrimSpace(odfText(el)); line != "" {
				lines = append(lines, line)
			}
			return false
		}
		return true
	})
	return strings.Join(lines, "\n")
}
