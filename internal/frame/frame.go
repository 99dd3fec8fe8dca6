// Package frame provides a minimal in-memory table of string cells with
// named columns, used to carry uploaded and generated datasets.
package frame

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
)

// Frame is a rectangular table. Every row has exactly len(Columns) cells.
type Frame struct {
	Columns []string
	Rows    [][]string
}

// New builds a Frame and checks that every row matches the header width.
func New(columns []string, rows [][]string) (*Frame, error) {
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, eris.Errorf("frame: row %d has %d cells, want %d", i+1, len(row), len(columns))
		}
	}
	return &Frame{Columns: columns, Rows: rows}, nil
}

// Len returns the number of data rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// Index returns the position of the first column with the given name, or -1.
func (f *Frame) Index(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the frame has a column with the given name.
func (f *Frame) Has(name string) bool {
	return f.Index(name) >= 0
}

// Column returns a copy of the values in the named column.
func (f *Frame) Column(name string) ([]string, error) {
	idx := f.Index(name)
	if idx < 0 {
		return nil, eris.Errorf("frame: column %q not found", name)
	}
	out := make([]string, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	cols := append([]string(nil), f.Columns...)
	rows := make([][]string, len(f.Rows))
	for i, row := range f.Rows {
		rows[i] = append([]string(nil), row...)
	}
	return &Frame{Columns: cols, Rows: rows}
}

// Rename returns a copy with columns renamed according to mapping. Columns
// absent from the mapping keep their name; no column is ever dropped.
func (f *Frame) Rename(mapping map[string]string) *Frame {
	out := f.Clone()
	for i, c := range out.Columns {
		if to, ok := mapping[c]; ok {
			out.Columns[i] = to
		}
	}
	return out
}

// Missing returns the names in want that are not columns of f, in want's order.
func (f *Frame) Missing(want []string) []string {
	var missing []string
	for _, name := range want {
		if !f.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Select returns a new frame holding exactly the named columns in the given order.
func (f *Frame) Select(names []string) (*Frame, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		idx[i] = f.Index(name)
		if idx[i] < 0 {
			return nil, eris.Errorf("frame: column %q not found", name)
		}
	}

	rows := make([][]string, len(f.Rows))
	for r, row := range f.Rows {
		sel := make([]string, len(idx))
		for i, j := range idx {
			sel[i] = row[j]
		}
		rows[r] = sel
	}
	return &Frame{Columns: append([]string(nil), names...), Rows: rows}, nil
}

// WithColumn returns a copy with a new column appended.
func (f *Frame) WithColumn(name string, values []string) (*Frame, error) {
	if len(values) != len(f.Rows) {
		return nil, eris.Errorf("frame: column %q has %d values, want %d", name, len(values), len(f.Rows))
	}
	out := f.Clone()
	out.Columns = append(out.Columns, name)
	for i := range out.Rows {
		out.Rows[i] = append(out.Rows[i], values[i])
	}
	return out, nil
}

// Head returns a frame with at most n leading rows. The rows are shared with f.
func (f *Frame) Head(n int) *Frame {
	if n < 0 || n >= len(f.Rows) {
		return &Frame{Columns: f.Columns, Rows: f.Rows}
	}
	return &Frame{Columns: f.Columns, Rows: f.Rows[:n]}
}

// WriteCSV writes the header and all rows as comma-separated UTF-8 text.
func (f *Frame) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Columns); err != nil {
		return eris.Wrap(err, "frame: write header")
	}
	for _, row := range f.Rows {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "frame: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "frame: flush csv")
}
