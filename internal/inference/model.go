package inference

import (
	"context"
	"math"
	"slices"

	"github.com/rotisserie/eris"
)

// Model kinds understood by LinearModel.
const (
	KindLogistic = "logistic"
	KindLinear   = "linear"
)

// Model is a trained predictor. Predict returns one value per row of x, in
// row order.
type Model interface {
	Predict(ctx context.Context, x *Matrix) ([]float64, error)
}

// Matrix is a feature-selected input table. Numeric holds parsed values for
// the numeric features, Categorical the raw strings for the categorical
// features; both are row-major.
type Matrix struct {
	NumericNames     []string
	CategoricalNames []string
	Numeric          [][]float64
	Categorical      [][]string
}

// Columns returns the feature names in model input order.
func (m *Matrix) Columns() []string {
	out := make([]string, 0, len(m.NumericNames)+len(m.CategoricalNames))
	out = append(out, m.NumericNames...)
	return append(out, m.CategoricalNames...)
}

// Len returns the number of rows.
func (m *Matrix) Len() int {
	if len(m.NumericNames) > 0 {
		return len(m.Numeric)
	}
	return len(m.Categorical)
}

// NumericTerm standardizes one numeric feature and weights it.
type NumericTerm struct {
	Name  string  `json:"name"`
	Mean  float64 `json:"mean"`
	Scale float64 `json:"scale"`
	Coef  float64 `json:"coef"`
}

// CategoricalTerm weights each known level of a categorical feature.
// Levels absent from the map contribute nothing.
type CategoricalTerm struct {
	Name   string             `json:"name"`
	Levels map[string]float64 `json:"levels"`
}

// LinearModel is a scaler, one-hot encoder, and linear estimator serialized
// as JSON. A logistic model emits 1 when sigmoid(z) >= Threshold and 0
// otherwise; a linear model emits z.
type LinearModel struct {
	Kind        string            `json:"kind"`
	Intercept   float64           `json:"intercept"`
	Threshold   float64           `json:"threshold"`
	Numeric     []NumericTerm     `json:"numeric"`
	Categorical []CategoricalTerm `json:"categorical"`
}

// Features returns the model's input feature names in order.
func (m *LinearModel) Features() []string {
	out := make([]string, 0, len(m.Numeric)+len(m.Categorical))
	for _, t := range m.Numeric {
		out = append(out, t.Name)
	}
	for _, t := range m.Categorical {
		out = append(out, t.Name)
	}
	return out
}

// Validate checks the model kind and that its features match meta exactly.
func (m *LinearModel) Validate(meta *Metadata) error {
	switch m.Kind {
	case KindLogistic, KindLinear:
	default:
		return eris.Errorf("unknown model kind %q", m.Kind)
	}
	if !slices.Equal(m.Features(), meta.Required()) {
		return eris.Errorf("model features %v do not match metadata %v", m.Features(), meta.Required())
	}
	return nil
}

// Predict implements Model.
func (m *LinearModel) Predict(ctx context.Context, x *Matrix) ([]float64, error) {
	if !slices.Equal(x.Columns(), m.Features()) {
		return nil, eris.Errorf("inference: input columns %v do not match model features %v", x.Columns(), m.Features())
	}

	n := x.Len()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, eris.Wrap(err, "inference: predict cancelled")
			}
		}

		z := m.Intercept
		for j, t := range m.Numeric {
			scale := t.Scale
			if scale == 0 {
				scale = 1
			}
			z += t.Coef * (x.Numeric[i][j] - t.Mean) / scale
		}
		for j, t := range m.Categorical {
			z += t.Levels[x.Categorical[i][j]]
		}

		if m.Kind == KindLogistic {
			if sigmoid(z) >= m.Threshold {
				out[i] = 1
			}
			continue
		}
		out[i] = z
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
