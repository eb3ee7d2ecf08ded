package decode

import (
	"database/sql"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/fileparse/internal/record"
)

// sqliteDecoder yields every row of every user table, tables in name order.
// Streams without a path are spooled to a temporary file first.
type sqliteDecoder struct {
	r      io.Reader
	path   string
	spool  string
	db     *sql.DB
	tables []string
	table  int
	rows   *sql.Rows
	cols   []string
}

func newSQLite(r io.Reader, opts Options) (Decoder, error) {
	return &sqliteDecoder{r: r, path: opts.Name}, nil
}

func (d *sqliteDecoder) Next() (*record.Record, error) {
	if d.db == nil {
		if d.r == nil {
			return nil, io.EOF
		}
		err := d.open()
		d.r = nil
		if err != nil {
			return nil, err
		}
	}
	for {
		if d.rows == nil {
			if d.table >= len(d.tables) {
				return nil, io.EOF
			}
			if err := d.query(d.tables[d.table]); err != nil {
				return nil, err
			}
		}
		if !d.rows.Next() {
			err := d.rows.Err()
			_ = d.rows.Close()
			d.rows = nil
			if err != nil {
				return nil, fmt.Errorf("read table %q: %w", d.tables[d.table], err)
			}
			d.table++
			continue
		}
		values := make([]any, len(d.cols))
		ptrs := make([]any, len(d.cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := d.rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan table %q: %w", d.tables[d.table], err)
		}
		rec := record.Of(record.FieldTable, d.tables[d.table])
		for i, col := range d.cols {
			if b, ok := values[i].([]byte); ok {
				rec.Set(col, string(b))
				continue
			}
			rec.Set(col, values[i])
		}
		return rec, nil
	}
}

func (d *sqliteDecoder) open() error {
	path := d.path
	if path == "" {
		if err := d.spoolInput(); err != nil {
			return err
		}
		path = d.spool
	}
	dsn := "file:" + (&url.URL{Path: path}).EscapedPath() + "?mode=ro"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	d.db = db
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return fmt.Errorf("list sqlite tables: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("list sqlite tables: %w", err)
		}
		d.tables = append(d.tables, name)
	}
	return rows.Err()
}

func (d *sqliteDecoder) spoolInput() error {
	f, err := os.CreateTemp("", "fileparse-*.sqlite")
	if err != nil {
		return fmt.Errorf("spool sqlite: %w", err)
	}
	d.spool = f.Name()
	if _, err := io.Copy(f, d.r); err != nil {
		_ = f.Close()
		return fmt.Errorf("spool sqlite: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("spool sqlite: %w", err)
	}
	return nil
}

func (d *sqliteDecoder) query(table string) error {
	rows, err := d.db.Query(`SELECT * FROM "` + strings.ReplaceAll(table, `"`, `""`) + `"`)
	if err != nil {
		return fmt.Errorf("read table %q: %w", table, err)
	}
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return fmt.Errorf("read table %q: %w", table, err)
	}
	d.rows, d.cols = rows, cols
	return nil
}

// Close releases the database and removes any spooled copy.
func (d *sqliteDecoder) Close() error {
	var err error
	if d.rows != nil {
		_ = d.rows.Close()
		d.rows = nil
	}
	if d.db != nil {
		err = d.db.Close()
		d.db = nil
	}
	if d.spool != "" {
		if rmErr := os.Remove(d.spool); rmErr != nil && err == nil {
			err = rmErr
		}
		d.spool = ""
	}
	return err
}
