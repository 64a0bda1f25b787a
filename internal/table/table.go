// Package table loads and writes header-keyed CSV tables, preserving
// column order and cell contents verbatim.
package table

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
)

// Row maps column name to cell value for one record.
type Row map[string]string

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered set of rows sharing one header.
type Table struct {
	Columns []string
	Rows    []Row
}

// HasColumn reports whether the header contains the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// RequireColumns returns an error naming the first required column missing
// from the header.
func (t *Table) RequireColumns(names ...string) error {
	for _, name := range names {
		if !t.HasColumn(name) {
			return eris.Errorf("table: required column %q not found in header", name)
		}
	}
	return nil
}

// Read parses a CSV table with a header row from r. Rows shorter than the
// header are padded with empty cells; extra cells are dropped.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "table: read header")
	}

	t := &Table{Columns: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "table: read row")
		}

		row := make(Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
}

// ReadFile reads a CSV file encoded as Windows-1252 (the Excel-era export
// default for this data); bytes without a mapping decode to U+FFFD instead
// of failing.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "table: open input")
	}
	defer f.Close() //nolint:errcheck

	return Read(charmap.Windows1252.NewDecoder().Reader(f))
}

// Writer streams rows to a UTF-8 CSV with a fixed column order.
type Writer struct {
	w       *csv.Writer
	columns []string
}

// NewWriter creates a Writer emitting the given columns in order.
func NewWriter(w io.Writer, columns []string) *Writer {
	return &Writer{w: csv.NewWriter(w), columns: columns}
}

// WriteHeader writes the column header row.
func (w *Writer) WriteHeader() error {
	if err := w.w.Write(w.columns); err != nil {
		return eris.Wrap(err, "table: write header")
	}
	return nil
}

// WriteRow writes one row, emitting cells in column order. Columns absent
// from the row are written as empty cells.
func (w *Writer) WriteRow(row Row) error {
	record := make([]string, len(w.columns))
	for i, col := range w.columns {
		record[i] = row[col]
	}
	if err := w.w.Write(record); err != nil {
		return eris.Wrap(err, "table: write row")
	}
	return nil
}

// Flush flushes buffered rows and returns any accumulated write error.
func (w *Writer) Flush() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return eris.Wrap(err, "table: flush")
	}
	return nil
}

// WriteFile writes a whole table to path as UTF-8 CSV.
func WriteFile(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "table: create output")
	}
	defer f.Close() //nolint:errcheck

	w := NewWriter(f, t.Columns)
	if err := w.WriteHeader(); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return w.Flush()
}
