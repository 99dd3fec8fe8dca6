package fetcher

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVOptions configures the CSV table reader.
type CSVOptions struct {
	Delimiter  rune   // default ','
	Encoding   string // WHATWG label, e.g. "utf-8", "windows-1252"; default utf-8
	Comment    rune   // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

// ErrEmptyCSV is returned when the input has no header row.
var ErrEmptyCSV = errors.New("csv: no columns to parse")

// RowWidthError reports a data row with more cells than the header.
type RowWidthError struct {
	Line   int
	Got    int
	Expect int
}

func (e *RowWidthError) Error() string {
	return fmt.Sprintf("csv: line %d has %d fields, header has %d", e.Line, e.Got, e.Expect)
}

// Decode wraps r so that it yields UTF-8 text. A leading byte order mark is
// always stripped. Unknown encoding labels are an error.
func Decode(r io.Reader, label string) (io.Reader, error) {
	if label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8") {
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: unknown encoding %q", label)
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

// ReadCSV reads a delimited table with a header row. Rows shorter than the
// header are padded with empty cells; wider rows fail with *RowWidthError.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) ([]string, [][]string, error) {
	decoded, err := Decode(r, opts.Encoding)
	if err != nil {
		return nil, nil, err
	}

	reader := csv.NewReader(decoded)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "csv: read header")
	}
	if opts.TrimSpace {
		trimAll(header)
	}

	var rows [][]string
	for {
		if ctx.Err() != nil {
			return nil, nil, eris.Wrap(ctx.Err(), "csv: context cancelled")
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "csv: read row")
		}

		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, nil, &RowWidthError{Line: line, Got: len(record), Expect: len(header)}
		}
		for len(record) < len(header) {
			record = append(record, "")
		}
		if opts.TrimSpace {
			trimAll(record)
		}
		rows = append(rows, record)
	}

	return header, rows, nil
}

func trimAll(cells []string) {
	for i, c := range cells {
		cells[i] = strings.TrimSpace(c)
	}
}
