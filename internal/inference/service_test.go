package inference

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/agri-cli/internal/frame"
	"github.com/sells-group/agri-cli/internal/model"
)

// stubModel returns fixed outputs and records the matrix it was called with.
type stubModel struct {
	fn    func(x *Matrix) []float64
	calls atomic.Int64
	last  *Matrix
}

func (s *stubModel) Predict(_ context.Context, x *Matrix) ([]float64, error) {
	s.calls.Add(1)
	s.last = x
	return s.fn(x), nil
}

type failingModel struct{}

func (failingModel) Predict(context.Context, *Matrix) ([]float64, error) {
	return nil, errors.New("boom")
}

var testMeta = Metadata{
	NumericFeatures:     []string{"Farm_Area_acres", "Water_Usage_cubic_meters"},
	CategoricalFeatures: []string{"Soil_Type"},
}

func alternating(x *Matrix) []float64 {
	out := make([]float64, x.Len())
	for i := range out {
		if i%2 == 0 {
			out[i] = 1
		}
	}
	return out
}

func areaTimesTwo(x *Matrix) []float64 {
	out := make([]float64, x.Len())
	for i, row := range x.Numeric {
		out[i] = row[0] * 2
	}
	return out
}

func newStubService() (*Service, *stubModel, *stubModel) {
	cls := &stubModel{fn: alternating}
	reg := &stubModel{fn: areaTimesTwo}
	return NewService(&Artifacts{Classifier: cls, Regressor: reg, Metadata: testMeta}, nil), cls, reg
}

func uploadFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.New(
		[]string{"Farm_ID", "Soil_Type", "Farm_Area(acres)", "Water_Usage(cubic meters)", "Notes"},
		[][]string{
			{"FARM_0001", "Loamy", "10", "600", "a"},
			{"FARM_0002", "Sandy", "2.5", "120", "b"},
			{"FARM_0003", "Black", " 7 ", "900", "c"},
		},
	)
	require.NoError(t, err)
	return f
}

func TestPredict_AppendsColumns(t *testing.T) {
	t.Parallel()

	svc, cls, reg := newStubService()
	in := uploadFrame(t)

	out, err := svc.Predict(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Farm_ID", "Soil_Type", "Farm_Area_acres", "Water_Usage_cubic_meters", "Notes",
		ColPredictedSuitability, ColPredictedYield,
	}, out.Columns)
	require.Equal(t, in.Len(), out.Len())

	for i, row := range out.Rows {
		assert.Equal(t, in.Rows[i][0], row[0], "row order preserved")
		assert.Equal(t, in.Rows[i][4], row[4], "extra columns preserved")
	}
	assert.Equal(t, model.LabelSuitable, out.Rows[0][5])
	assert.Equal(t, model.LabelNotSuitable, out.Rows[1][5])
	assert.Equal(t, model.LabelSuitable, out.Rows[2][5])
	assert.Equal(t, "20", out.Rows[0][6])
	assert.Equal(t, "5", out.Rows[1][6])
	assert.Equal(t, "14", out.Rows[2][6])

	assert.Equal(t, int64(1), cls.calls.Load())
	assert.Equal(t, int64(1), reg.calls.Load())
	assert.Equal(t, testMeta.Required(), cls.last.Columns())
	assert.Equal(t, []string{"Loamy"}, cls.last.Categorical[0])
}

func TestPredict_InputUnchanged(t *testing.T) {
	t.Parallel()

	svc, _, _ := newStubService()
	in := uploadFrame(t)
	before := in.Clone()

	_, err := svc.Predict(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, before, in)
}

func TestPredict_UnmappedNamePassesThrough(t *testing.T) {
	t.Parallel()

	svc, _, _ := newStubService()
	out, err := svc.Predict(context.Background(), uploadFrame(t))
	require.NoError(t, err)

	col, err := out.Column("Soil_Type")
	require.NoError(t, err)
	assert.Equal(t, []string{"Loamy", "Sandy", "Black"}, col)
}

func TestPredict_ParsedUploadKeepsCellWhitespace(t *testing.T) {
	t.Parallel()

	svc, cls, _ := newStubService()
	csv := "Farm_ID, Soil_Type ,Farm_Area(acres),Water_Usage(cubic meters),Notes\n" +
		"FARM_0001, Loamy ,10,600,  keep  spaces  \n"
	in, err := ParseUpload(context.Background(), "farms.csv", strings.NewReader(csv), "")
	require.NoError(t, err)

	out, err := svc.Predict(context.Background(), in)
	require.NoError(t, err)

	soil, err := out.Column("Soil_Type")
	require.NoError(t, err)
	assert.Equal(t, []string{" Loamy "}, soil)

	notes, err := out.Column("Notes")
	require.NoError(t, err)
	assert.Equal(t, []string{"  keep  spaces  "}, notes)

	// Model input is still trimmed.
	assert.Equal(t, []string{"Loamy"}, cls.last.Categorical[0])
}

func TestPredict_MissingColumns(t *testing.T) {
	t.Parallel()

	svc, cls, reg := newStubService()
	in, err := frame.New([]string{"Farm_ID", "Farm_Area(acres)"}, [][]string{{"FARM_0001", "3"}})
	require.NoError(t, err)

	out, err := svc.Predict(context.Background(), in)
	require.Error(t, err)
	assert.Nil(t, out)

	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"Water_Usage_cubic_meters", "Soil_Type"}, missing.Missing)
	assert.Equal(t, KindMissingColumns, Kind(err))
	assert.Zero(t, cls.calls.Load())
	assert.Zero(t, reg.calls.Load())
}

func TestPredict_NonNumericCell(t *testing.T) {
	t.Parallel()

	svc, cls, _ := newStubService()
	in := uploadFrame(t)
	in.Rows[1][3] = "lots"

	_, err := svc.Predict(context.Background(), in)
	require.Error(t, err)

	var malformed *MalformedInputError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, 2, malformed.Row)
	assert.Equal(t, "Water_Usage_cubic_meters", malformed.Column)
	assert.Zero(t, cls.calls.Load())
}

func TestPredict_ModelFailure(t *testing.T) {
	t.Parallel()

	svc := NewService(&Artifacts{Classifier: failingModel{}, Regressor: failingModel{}, Metadata: testMeta}, nil)
	out, err := svc.Predict(context.Background(), uploadFrame(t))
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Equal(t, KindInternal, Kind(err))
}

func TestPredict_WrongPredictionCount(t *testing.T) {
	t.Parallel()

	short := &stubModel{fn: func(*Matrix) []float64 { return []float64{1} }}
	svc := NewService(&Artifacts{Classifier: short, Regressor: short, Metadata: testMeta}, nil)
	_, err := svc.Predict(context.Background(), uploadFrame(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "predictions for 3 rows")
}

func TestPredict_EmptyTable(t *testing.T) {
	t.Parallel()

	svc, _, _ := newStubService()
	in, err := frame.New([]string{"Soil_Type", "Farm_Area(acres)", "Water_Usage(cubic meters)"}, nil)
	require.NoError(t, err)

	out, err := svc.Predict(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
	assert.True(t, out.Has(ColPredictedYield))
}

func TestPredict_WorkedExampleWithFixtures(t *testing.T) {
	t.Parallel()

	arts, err := NewLoader("testdata/models", DefaultFiles).Load(context.Background())
	require.NoError(t, err)
	svc := NewService(arts, nil)

	csv := strings.Join([]string{
		"Farm_ID,Crop_Type,Farm_Area(acres),Irrigation_Type,Fertilizer_Used(tons),Pesticide_Used(kg),Soil_Type,Season,Water_Usage(cubic meters)",
		"FARM_0001,Wheat,10,Canal,1.0,2.0,Loamy,Rabi,600",
	}, "\n")
	in, err := ParseUpload(context.Background(), "farms.csv", strings.NewReader(csv), "")
	require.NoError(t, err)

	out, err := svc.Predict(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())

	labels, err := out.Column(ColPredictedSuitability)
	require.NoError(t, err)
	assert.Contains(t, []string{model.LabelSuitable, model.LabelNotSuitable}, labels[0])

	yields, err := out.Column(ColPredictedYield)
	require.NoError(t, err)
	assert.NotEmpty(t, yields[0])

	var buf bytes.Buffer
	require.NoError(t, out.WriteCSV(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "Farm_ID,Crop_Type,Farm_Area_acres,"))
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	svc, _, _ := newStubService()
	out, err := svc.Predict(context.Background(), uploadFrame(t))
	require.NoError(t, err)

	sum := Summarize(out)
	assert.Equal(t, 3, sum.Rows)
	assert.Equal(t, 2, sum.Suitable)
	assert.InDelta(t, 13.0, sum.MeanYield, 1e-9)
}

func TestKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindMissingArtifact, Kind(&MissingArtifactError{}))
	assert.Equal(t, KindInvalidArtifact, Kind(&InvalidArtifactError{}))
	assert.Equal(t, KindMissingColumns, Kind(&MissingColumnsError{}))
	assert.Equal(t, KindMalformedInput, Kind(&MalformedInputError{Err: errors.New("x")}))
	assert.Equal(t, KindInternal, Kind(errors.New("other")))
}
