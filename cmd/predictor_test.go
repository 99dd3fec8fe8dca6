package main

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/agri-cli/internal/inference"
	"github.com/sells-group/agri-cli/internal/model"
	"github.com/sells-group/agri-cli/internal/monitoring"
	"github.com/sells-group/agri-cli/internal/store"
)

func TestPredictor_RecordsCompleteRun(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	metrics, err := monitoring.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	p := &predictor{
		loader:  inference.NewLoader(fixtureModels, inference.DefaultFiles),
		store:   st,
		metrics: metrics,
	}

	res, err := p.run(ctx, sourceCLI, "farms.csv", strings.NewReader(validUpload))
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)
	assert.Equal(t, 3, res.Output.Len())
	assert.Equal(t, 3, res.Summary.Rows)
	assert.True(t, res.Output.Has(inference.ColPredictedSuitability))
	assert.True(t, res.Output.Has(inference.ColPredictedYield))
	assert.False(t, res.Input.Has(inference.ColPredictedYield))

	run, err := st.GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, sourceCLI, run.Source)
	require.NotNil(t, run.Summary)
	assert.Equal(t, 3, run.Summary.Rows)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PredictionTotal.WithLabelValues(sourceCLI, monitoring.StatusSuccess)), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.RowsPredicted), 0)
}

func TestPredictor_RecordsFailedRun(t *testing.T) {
	tests := []struct {
		name     string
		dir      string
		upload   string
		wantKind string
	}{
		{
			name:     "missing artifacts",
			dir:      "",
			upload:   validUpload,
			wantKind: inference.KindMissingArtifact,
		},
		{
			name:     "missing columns",
			dir:      fixtureModels,
			upload:   "Farm_ID,Crop_Type\nFARM_0001,Wheat",
			wantKind: inference.KindMissingColumns,
		},
		{
			name:     "malformed upload",
			dir:      fixtureModels,
			upload:   "",
			wantKind: inference.KindMalformedInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			dir := tt.dir
			if dir == "" {
				dir = t.TempDir()
			}
			st := newTestStore(t)
			p := &predictor{
				loader: inference.NewLoader(dir, inference.DefaultFiles),
				store:  st,
			}

			_, err := p.run(ctx, sourceAPI, "farms.csv", strings.NewReader(tt.upload))
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, inference.Kind(err))

			runs, err := st.ListRuns(ctx, store.RunFilter{})
			require.NoError(t, err)
			require.Len(t, runs, 1)
			assert.Equal(t, model.RunStatusFailed, runs[0].Status)
			assert.Equal(t, tt.wantKind, runs[0].ErrorKind)
			assert.NotEmpty(t, runs[0].Error)
			assert.Nil(t, runs[0].Summary)
		})
	}
}

func TestPredictor_WithoutStore(t *testing.T) {
	p := &predictor{loader: inference.NewLoader(fixtureModels, inference.DefaultFiles)}

	res, err := p.run(context.Background(), sourceCLI, "farms.csv", strings.NewReader(validUpload))
	require.NoError(t, err)
	assert.Empty(t, res.RunID)
	assert.Equal(t, 3, res.Summary.Rows)
}

func TestPredictor_StoreFailureDoesNotFailPrediction(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Close())

	p := &predictor{
		loader: inference.NewLoader(fixtureModels, inference.DefaultFiles),
		store:  st,
	}

	res, err := p.run(context.Background(), sourceCLI, "farms.csv", strings.NewReader(validUpload))
	require.NoError(t, err)
	assert.Empty(t, res.RunID)
	assert.Equal(t, 3, res.Output.Len())
}
