package decode

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hyperjump/fileparse/internal/record"
)

var (
	// slidePathRe matches ppt/slides/slideN.xml and captures N.
	slidePathRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	// apTag matches one <a:p> text paragraph.
	apTag = regexp.MustCompile(`(?s)<a:p(?:\s[^>]*[^/])?>(.*?)</a:p>`)
	// atTag matches <a:t>text</a:t> or <a:t xml:space="preserve">text</a:t> (and any other attributes).
	atTag = regexp.MustCompile(`<a:t(?:\s[^>]*)?>([^<]*)</a:t>`)
)

type pptxSlide struct {
	no   int
	text string
}

// pptxDecoder yields {slide, text} per slide in slide-number order.
// Text paragraphs of a slide are joined with newlines.
type pptxDecoder struct {
	r      io.Reader
	slides []pptxSlide
	loaded bool
	pos    int
}

func newPPTX(r io.Reader, _ Options) (Decoder, error) {
	return &pptxDecoder{r: r}, nil
}

func (d *pptxDecoder) Next() (*record.Record, error) {
	if !d.loaded {
		d.loaded = true
		if err := d.load(); err != nil {
			return nil, err
		}
	}
	if d.pos >= len(d.slides) {
		return nil, io.EOF
	}
	s := d.slides[d.pos]
	d.pos++
	return record.Of("slide", s.no, record.FieldText, s.text), nil
}

func (d *pptxDecoder) load() error {
	zr, err := openZip(d.r, "pptx")
	if err != nil {
		return err
	}
	for _, f := range zr.File {
		m := slidePathRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		no, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		data, err := readZipFile(zr, f.Name)
		if err != nil {
			return fmt.Errorf("read pptx: %w", err)
		}
		var lines []string
		for _, p := range apTag.FindAllStringSubmatch(string(data), -1) {
			if line := strings.TrimSpace(runText(atTag, p[1])); line != "" {
				lines = append(lines, line)
			}
		}
		d.slides = append(d.slides, pptxSlide{no: no, text: strings.Join(lines, "\n")})
	}
	sort.Slice(d.slides, func(i, j int) bool { return d.slides[i].no < d.slides[j].no })
	return nil
}
