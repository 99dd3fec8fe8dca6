package inference

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/sells-group/agri-cli/internal/fetcher"
	"github.com/sells-group/agri-cli/internal/frame"
)

// ParseUpload reads an uploaded table. Files named *.xlsx are read as
// workbooks; anything else as comma-separated text in the given encoding.
// Header names are trimmed so they match feature names; cell values are kept
// verbatim. Every failure is a *MalformedInputError.
func ParseUpload(ctx context.Context, name string, r io.Reader, encoding string) (*frame.Frame, error) {
	var (
		header []string
		rows   [][]string
		err    error
	)

	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		data, readErr := io.ReadAll(r)
		if readErr != nil {
			return nil, &MalformedInputError{Err: readErr}
		}
		header, rows, err = fetcher.ReadXLSX(data, fetcher.XLSXOptions{})
	} else {
		header, rows, err = fetcher.ReadCSV(ctx, r, fetcher.CSVOptions{Encoding: encoding})
	}
	if err != nil {
		return nil, &MalformedInputError{Err: err}
	}
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
	}

	f, err := frame.New(header, rows)
	if err != nil {
		return nil, &MalformedInputError{Err: err}
	}
	return f, nil
}
