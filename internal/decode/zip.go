package decode

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

const (
	// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
	contentTypesPath = "[Content_Types].xml"
	// odfContentPath is the path to the main content inside an OpenDocument zip.
	odfContentPath = "content.xml"
)

// openZip reads the whole input into memory; office packages need random access.
func openZip(r io.Reader, kind string) (*zip.Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read %s: not a zip: %w", kind, err)
	}
	return zr, nil
}

// readZipFile returns the contents of the named entry, or nil if it is absent.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		return buf.Bytes(), nil
	}
	return nil, nil
}

// runText joins the inner text of every match of re, unescaping entities.
func runText(re *regexp.Regexp, s string) string {
	var b strings.Builder
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		b.WriteString(html.UnescapeString(m[1]))
	}
	return b.String()
}

// readODFContent parses content.xml of an OpenDocument package.
func readODFContent(r io.Reader, kind string) (*etree.Element, error) {
	zr, err := openZip(r, kind)
	if err != nil {
		return nil, err
	}
	data, err := readZipFile(zr, odfContentPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", kind, err)
	}
	if data == nil {
		return nil, fmt.Errorf("read %s: %s not found", kind, odfContentPath)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("read %s: parse %s: %w", kind, odfContentPath, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("read %s: %s is empty", kind, odfContentPath)
	}
	return root, nil
}

// walkElements calls fn for el and its descendants in document order.
// Returning false from fn skips the element's children.
func walkElements(el *etree.Element, fn func(*etree.Element) bool) {
	if !fn(el) {
		return
	}
	for _, c := range el.ChildElements() {
		walkElements(c, fn)
	}
}

func isODF(el *etree.Element, space, tag string) bool {
	return el.Space == space && el.Tag == tag
}

// odfText returns the character content of an OpenDocument text element,
// expanding text:s, text:tab and text:line-break.
func odfText(el *etree.Element) string {
	var b strings.Builder
	var visit func(e *etree.Element)
	visit = func(e *etree.Element) {
		for _, tok := range e.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				b.WriteString(t.Data)
			case *etree.Element:
				switch {
				case isODF(t, "text", "s"):
					n, err := strconv.Atoi(t.SelectAttrValue("text:c", "1"))
					if err != nil || n < 1 {
						n = 1
					}
					b.WriteString(strings.Repeat(" ", n))
				case isODF(t, "text", "tab"):
					b.WriteByte('\t')
				case isODF(t, "text", "line-break"):
					b.WriteByte('\n')
				default:
					visit(t)
				}
			}
		}
	}
	visit(el)
	return b.String()
}
