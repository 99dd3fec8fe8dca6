package fetcher

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions configures the XLSX table reader.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadXLSX parses an in-memory XLSX workbook and returns the first row of the
// chosen sheet as the header and the remaining rows as data. Data rows are
// padded or truncated to the header width; trailing empty cells are common in
// spreadsheet exports.
func ReadXLSX(data []byte, opts XLSXOptions) ([]string, [][]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, nil, eris.Wrap(err, "xlsx: open workbook")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, nil, err
	}
	if len(sheet.Rows) == 0 || sheet.Rows[0] == nil {
		return nil, nil, ErrEmptyCSV
	}

	header := trimTrailingEmpty(rowToStrings(sheet.Rows[0]))
	if len(header) == 0 {
		return nil, nil, ErrEmptyCSV
	}

	rows := make([][]string, 0, len(sheet.Rows)-1)
	for i, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		cells := rowToStrings(row)
		if len(trimTrailingEmpty(cells)) > len(header) {
			return nil, nil, &RowWidthError{Line: i + 2, Got: len(cells), Expect: len(header)}
		}
		out := make([]string, len(header))
		copy(out, cells)
		rows = append(rows, out)
	}

	return header, rows, nil
}

// WriteXLSX writes a single-sheet workbook with a header row followed by rows.
func WriteXLSX(w io.Writer, sheetName string, header []string, rows [][]string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	addRow := func(cells []string) {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().SetString(v)
		}
	}
	addRow(header)
	for _, r := range rows {
		addRow(r)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write workbook")
	}
	return nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func trimTrailingEmpty(cells []string) []string {
	n := len(cells)
	for n > 0 && cells[n-1] == "" {
		n--
	}
	return cells[:n]
}
