package decode

import (
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/hyperjump/fileparse/internal/record"
)

// maxRepeat bounds number-columns-repeated and number-rows-repeated so a
// styled-but-empty tail cannot expand into millions of cells.
const maxRepeat = 1 << 10

type odsRow struct {
	sheet string
	no    int
	cells []any
}

// odsDecoder yields {__sheet__, __row__, cells} for each non-empty table row.
type odsDecoder struct {
	r      io.Reader
	rows   []odsRow
	loaded bool
	pos    int
}

func newODS(r io.Reader, _ Options) (Decoder, error) {
	return &odsDecoder{r: r}, nil
}

func (d *odsDecoder) Next() (*record.Record, error) {
	if !d.loaded {
		d.loaded = true
		if err := d.load(); err != nil {
			return nil, err
		}
	}
	if d.pos >= len(d.rows) {
		return nil, io.EOF
	}
	row := d.rows[d.pos]
	d.pos++
	return record.Of(
		record.FieldSheet, row.sheet,
		record.FieldRow, row.no,
		"cells", row.cells,
	), nil
}

func (d *odsDecoder) load() error {
	root, err := readODFContent(d.r, "ods")
	if err != nil {
		return err
	}
	walkElements(root, func(el *etree.Element) bool {
		if !isODF(el, "table", "table") {
			return true
		}
		d.loadTable(el)
		return false
	})
	return nil
}

func (d *odsDecoder) loadTable(table *etree.Element) {
	name := table.SelectAttrValue("table:name", "")
	no := 0
	walkElements(table, func(el *etree.Element) bool {
		if !isODF(el, "table", "table-row") {
			return true
		}
		cells := odsCells(el)
		repeat := odsRepeat(el, "table:number-rows-repeated")
		for i := 0; i < repeat; i++ {
			no++
			if len(cells) > 0 {
				d.rows = append(d.rows, odsRow{sheet: name, no: no, cells: cells})
			}
		}
		return false
	})
}

// odsCells returns the cell texts of a row with trailing empty cells removed.
func odsCells(row *etree.Element) []any {
	var cells []any
	last := 0
	for _, c := range row.ChildElements() {
		if !isODF(c, "table", "table-cell") && !isODF(c, "table", "covered-table-cell") {
			continue
		}
		var paras []string
		for _, p := range c.ChildElements() {
			if isODF(p, "text", "p") {
				paras = append(paras, odfText(p))
			}
		}
		text := strings.Join(paras, "\n")
		for i := odsRepeat(c, "table:number-columns-repeated"); i > 0; i-- {
			cells = append(cells, text)
			if text != "" {
				last = len(cells)
			}
		}
	}
	return cells[:last]
}

func odsRepeat(el *etree.Element, attr string) int {
	n, err := strconv.Atoi(el.SelectAttrValue(attr, "1"))
	if err != nil || n < 1 {
		return 1
	}
	return min(n, maxRepeat)
}
