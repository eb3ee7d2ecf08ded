package decode

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/fileparse/internal/record"
)

// excelDecoder walks every sheet in workbook order. The first non-empty row
// of a sheet is its header; later rows become records shaped like delimited
// rows, prefixed with __sheet__ and __row__.
type excelDecoder struct {
	r      io.Reader
	f      *excelize.File
	sheets []string
	sheet  int
	rows   *excelize.Rows
	rowNo  int
	header []string
}

func newExcel(r io.Reader, _ Options) (Decoder, error) {
	return &excelDecoder{r: r}, nil
}

func (d *excelDecoder) Next() (*record.Record, error) {
	if d.f == nil {
		if d.r == nil {
			return nil, io.EOF
		}
		f, err := excelize.OpenReader(d.r)
		d.r = nil
		if err != nil {
			return nil, fmt.Errorf("open Excel: %w", err)
		}
		d.f = f
		d.sheets = f.GetSheetList()
	}
	for {
		if d.rows == nil {
			if d.sheet >= len(d.sheets) {
				return nil, io.EOF
			}
			rows, err := d.f.Rows(d.sheets[d.sheet])
			if err != nil {
				return nil, fmt.Errorf("get rows for sheet %q: %w", d.sheets[d.sheet], err)
			}
			d.rows, d.rowNo, d.header = rows, 0, nil
		}
		if !d.rows.Next() {
			err := d.rows.Error()
			_ = d.rows.Close()
			d.rows = nil
			if err != nil {
				return nil, fmt.Errorf("read sheet %q: %w", d.sheets[d.sheet], err)
			}
			d.sheet++
			continue
		}
		d.rowNo++
		cols, err := d.rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read sheet %q row %d: %w", d.sheets[d.sheet], d.rowNo, err)
		}
		if len(cols) == 0 {
			continue
		}
		if d.header == nil {
			d.header = cols
			continue
		}
		rec := record.Of(record.FieldSheet, d.sheets[d.sheet], record.FieldRow, d.rowNo)
		fillRow(rec, d.header, cols)
		return rec, nil
	}
}

// Close releases the workbook.
func (d *excelDecoder) Close() error {
	if d.rows != nil {
		_ = d.rows.Close()
		d.rows = nil
	}
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}
