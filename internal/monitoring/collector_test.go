package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/agri-cli/internal/model"
	"github.com/sells-group/agri-cli/internal/store"
)

// mockStore implements RunLister for testing.
type mockStore struct {
	runs    []model.PredictionRun
	listErr error
	last    store.RunFilter
}

func (m *mockStore) ListRuns(_ context.Context, filter store.RunFilter) ([]model.PredictionRun, error) {
	m.last = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	var filtered []model.PredictionRun
	for _, r := range m.runs {
		if !filter.CreatedAfter.IsZero() && r.CreatedAt.Before(filter.CreatedAfter) {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered, nil
}

func completeRun(created time.Time, took time.Duration, rows, suitable int, meanYield float64) model.PredictionRun {
	return model.PredictionRun{
		Status:    model.RunStatusComplete,
		Summary:   &model.PredictionSummary{Rows: rows, Suitable: suitable, MeanYield: meanYield},
		CreatedAt: created,
		UpdatedAt: created.Add(took),
	}
}

func failedRun(created time.Time, kind string) model.PredictionRun {
	return model.PredictionRun{
		Status:    model.RunStatusFailed,
		ErrorKind: kind,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestCollector_Collect(t *testing.T) {
	now := time.Now().UTC()
	st := &mockStore{runs: []model.PredictionRun{
		completeRun(now.Add(-1*time.Hour), 2*time.Second, 10, 4, 20),
		completeRun(now.Add(-2*time.Hour), 4*time.Second, 30, 6, 40),
		failedRun(now.Add(-3*time.Hour), "missing_columns"),
		failedRun(now.Add(-4*time.Hour), "missing_columns"),
		failedRun(now.Add(-5*time.Hour), "malformed_input"),
		{Status: model.RunStatusRunning, CreatedAt: now.Add(-time.Minute)},
		// Outside the window.
		completeRun(now.Add(-48*time.Hour), time.Second, 1000, 1000, 1),
	}}

	snap, err := NewCollector(st).Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 6, snap.Total)
	assert.Equal(t, 2, snap.Complete)
	assert.Equal(t, 3, snap.Failed)
	assert.Equal(t, 1, snap.Running)
	assert.InDelta(t, 0.6, snap.FailRate, 1e-9)
	assert.Equal(t, 40, snap.RowsPredicted)
	assert.Equal(t, 10, snap.RowsSuitable)
	assert.InDelta(t, 0.25, snap.SuitableShare, 1e-9)
	assert.InDelta(t, 35.0, snap.MeanYield, 1e-9) // (10*20 + 30*40) / 40
	assert.InDelta(t, 3.0, snap.AvgDuration, 1e-9)
	assert.Equal(t, map[string]int{"missing_columns": 2, "malformed_input": 1}, snap.ErrorsByKind)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.False(t, snap.CollectedAt.IsZero())
	assert.Equal(t, collectLimit, st.last.Limit)
}

func TestCollector_AllTime(t *testing.T) {
	now := time.Now().UTC()
	st := &mockStore{runs: []model.PredictionRun{
		completeRun(now.Add(-24*365*time.Hour), time.Second, 5, 5, 10),
	}}

	snap, err := NewCollector(st).Collect(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Total)
	assert.True(t, st.last.CreatedAfter.IsZero())
}

func TestCollector_Empty(t *testing.T) {
	snap, err := NewCollector(&mockStore{}).Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Zero(t, snap.Total)
	assert.Zero(t, snap.FailRate)
	assert.Zero(t, snap.MeanYield)
	assert.Nil(t, snap.ErrorsByKind)
}

func TestCollector_ListError(t *testing.T) {
	st := &mockStore{listErr: errors.New("db down")}
	_, err := NewCollector(st).Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list runs")
}
