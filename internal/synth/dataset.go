package synth

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/agri-cli/internal/fetcher"
	"github.com/sells-group/agri-cli/internal/frame"
	"github.com/sells-group/agri-cli/internal/model"
)

// Output formats for WriteFile.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ToFrame lays records out under model.DatasetColumns.
func ToFrame(records []model.FarmRecord) *frame.Frame {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			r.FarmID,
			r.CropType,
			formatFloat(r.FarmArea),
			r.IrrigationType,
			formatFloat(r.Fertilizer),
			formatFloat(r.Pesticide),
			formatFloat(r.Yield),
			r.SoilType,
			r.Season,
			formatFloat(r.WaterUsage),
			r.Suitability,
		}
	}
	return &frame.Frame{Columns: append([]string(nil), model.DatasetColumns...), Rows: rows}
}

// FromFrame parses a dataset table back into records. The frame must carry
// every column of model.DatasetColumns; column order does not matter.
func FromFrame(f *frame.Frame) ([]model.FarmRecord, error) {
	if missing := f.Missing(model.DatasetColumns); len(missing) > 0 {
		return nil, eris.Errorf("synth: dataset missing columns %s", strings.Join(missing, ", "))
	}

	idx := make(map[string]int, len(model.DatasetColumns))
	for _, c := range model.DatasetColumns {
		idx[c] = f.Index(c)
	}

	records := make([]model.FarmRecord, len(f.Rows))
	for i, row := range f.Rows {
		num := func(col string) (float64, error) {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[idx[col]]), 64)
			if err != nil {
				return 0, eris.Wrapf(err, "synth: row %d column %s", i+1, col)
			}
			return v, nil
		}

		r := model.FarmRecord{
			FarmID:         row[idx[model.ColFarmID]],
			CropType:       row[idx[model.ColCropType]],
			IrrigationType: row[idx[model.ColIrrigation]],
			SoilType:       row[idx[model.ColSoilType]],
			Season:         row[idx[model.ColSeason]],
			Suitability:    row[idx[model.ColSuitability]],
		}
		var err error
		if r.FarmArea, err = num(model.ColFarmArea); err != nil {
			return nil, err
		}
		if r.Fertilizer, err = num(model.ColFertilizer); err != nil {
			return nil, err
		}
		if r.Pesticide, err = num(model.ColPesticide); err != nil {
			return nil, err
		}
		if r.Yield, err = num(model.ColYield); err != nil {
			return nil, err
		}
		if r.WaterUsage, err = num(model.ColWaterUsage); err != nil {
			return nil, err
		}
		records[i] = r
	}
	return records, nil
}

// Write encodes records to w in the given format.
func Write(w io.Writer, records []model.FarmRecord, format string) error {
	f := ToFrame(records)
	switch format {
	case FormatCSV, "":
		return eris.Wrap(f.WriteCSV(w), "synth: write csv")
	case FormatXLSX:
		return eris.Wrap(fetcher.WriteXLSX(w, "dataset", f.Columns, f.Rows), "synth: write xlsx")
	default:
		return eris.Errorf("synth: unsupported format %q", format)
	}
}

// WriteFile writes records to path, creating parent directories. The file is
// written to a temporary sibling first and renamed into place.
func WriteFile(path string, records []model.FarmRecord, format string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "synth: create output dir")
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".dataset-*")
	if err != nil {
		return eris.Wrap(err, "synth: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := Write(tmp, records, format); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "synth: close temp file")
	}
	return eris.Wrap(os.Rename(tmp.Name(), path), "synth: rename output")
}

// FormatForPath infers the output format from a file extension.
func FormatForPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
