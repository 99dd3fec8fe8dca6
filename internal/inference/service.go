// Package inference runs uploaded farm tables through the trained suitability
// classifier and yield regressor.
package inference

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/agri-cli/internal/frame"
	"github.com/sells-group/agri-cli/internal/model"
)

// Output column names appended by Predict.
const (
	ColPredictedSuitability = "Predicted_Suitability"
	ColPredictedYield       = "Predicted_Yield_tons"
)

// DefaultColumnMap renames raw dataset headers to model feature names.
var DefaultColumnMap = map[string]string{
	model.ColFarmArea:   "Farm_Area_acres",
	model.ColFertilizer: "Fertilizer_Used_tons",
	model.ColPesticide:  "Pesticide_Used_kg",
	model.ColWaterUsage: "Water_Usage_cubic_meters",
}

// Service predicts suitability and yield with a fixed set of artifacts.
// It is safe for concurrent use.
type Service struct {
	arts    *Artifacts
	columns map[string]string
}

// NewService returns a Service over arts. A nil columns map uses
// DefaultColumnMap.
func NewService(arts *Artifacts, columns map[string]string) *Service {
	if columns == nil {
		columns = DefaultColumnMap
	}
	return &Service{arts: arts, columns: columns}
}

// Metadata returns the feature metadata the models were trained with.
func (s *Service) Metadata() Metadata {
	return s.arts.Metadata
}

// Predict renames the input columns, checks that every required feature is
// present, and returns a copy of the renamed table with predicted suitability
// and yield appended. The input is never modified.
func (s *Service) Predict(ctx context.Context, in *frame.Frame) (*frame.Frame, error) {
	renamed := in.Rename(s.columns)

	required := s.arts.Metadata.Required()
	if missing := renamed.Missing(required); len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}

	x, err := s.matrix(renamed)
	if err != nil {
		return nil, err
	}

	classes, err := s.arts.Classifier.Predict(ctx, x)
	if err != nil {
		return nil, eris.Wrap(err, "inference: classifier")
	}
	yields, err := s.arts.Regressor.Predict(ctx, x)
	if err != nil {
		return nil, eris.Wrap(err, "inference: regressor")
	}
	if len(classes) != renamed.Len() || len(yields) != renamed.Len() {
		return nil, eris.Errorf("inference: models returned %d and %d predictions for %d rows",
			len(classes), len(yields), renamed.Len())
	}

	labels := make([]string, len(classes))
	for i, c := range classes {
		labels[i] = model.SuitabilityLabel(c == 1)
	}
	values := make([]string, len(yields))
	for i, y := range yields {
		values[i] = strconv.FormatFloat(y, 'f', -1, 64)
	}

	out, err := renamed.WithColumn(ColPredictedSuitability, labels)
	if err != nil {
		return nil, eris.Wrap(err, "inference: append suitability")
	}
	out, err = out.WithColumn(ColPredictedYield, values)
	if err != nil {
		return nil, eris.Wrap(err, "inference: append yield")
	}
	return out, nil
}

func (s *Service) matrix(f *frame.Frame) (*Matrix, error) {
	meta := s.arts.Metadata
	sel, err := f.Select(meta.Required())
	if err != nil {
		return nil, eris.Wrap(err, "inference: select features")
	}

	nNum := len(meta.NumericFeatures)
	x := &Matrix{
		NumericNames:     meta.NumericFeatures,
		CategoricalNames: meta.CategoricalFeatures,
		Numeric:          make([][]float64, sel.Len()),
		Categorical:      make([][]string, sel.Len()),
	}
	for i, row := range sel.Rows {
		nums := make([]float64, nNum)
		for j := 0; j < nNum; j++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[j]), 64)
			if err != nil {
				return nil, &MalformedInputError{Row: i + 1, Column: sel.Columns[j], Err: err}
			}
			nums[j] = v
		}
		cats := make([]string, len(row)-nNum)
		for j := range cats {
			cats[j] = strings.TrimSpace(row[nNum+j])
		}
		x.Numeric[i] = nums
		x.Categorical[i] = cats
	}
	return x, nil
}

// Summarize computes aggregate figures over a table returned by Predict.
func Summarize(out *frame.Frame) model.PredictionSummary {
	sum := model.PredictionSummary{Rows: out.Len()}
	labelIdx := out.Index(ColPredictedSuitability)
	yieldIdx := out.Index(ColPredictedYield)

	var total float64
	var counted int
	for _, row := range out.Rows {
		if labelIdx >= 0 && row[labelIdx] == model.LabelSuitable {
			sum.Suitable++
		}
		if yieldIdx >= 0 {
			if v, err := strconv.ParseFloat(row[yieldIdx], 64); err == nil {
				total += v
				counted++
			}
		}
	}
	if counted > 0 {
		sum.MeanYield = total / float64(counted)
	}
	return sum
}
