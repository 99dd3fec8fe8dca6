package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/agri-cli/internal/model"
	"github.com/sells-group/agri-cli/internal/store"
)

// collectLimit bounds the number of runs read for one snapshot.
const collectLimit = 10000

// MetricsSnapshot holds a point-in-time view of prediction history.
type MetricsSnapshot struct {
	// Run counts (within lookback window).
	Total    int     `json:"total"`
	Complete int     `json:"complete"`
	Failed   int     `json:"failed"`
	Running  int     `json:"running"`
	FailRate float64 `json:"fail_rate"`

	// Totals over completed runs.
	RowsPredicted int     `json:"rows_predicted"`
	RowsSuitable  int     `json:"rows_suitable"`
	SuitableShare float64 `json:"suitable_share"`
	MeanYield     float64 `json:"mean_yield_tons"`
	AvgDuration   float64 `json:"avg_duration_seconds"`

	// Failed runs by error kind.
	ErrorsByKind map[string]int `json:"errors_by_kind,omitempty"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// RunLister is the subset of store.Store the collector needs.
type RunLister interface {
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.PredictionRun, error)
}

// Collector gathers metrics from the run history store.
type Collector struct {
	store RunLister
}

// NewCollector creates a new metrics collector.
func NewCollector(st RunLister) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot over the given lookback window. A non-positive
// window covers all recorded runs.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := time.Now().UTC()
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	filter := store.RunFilter{Limit: collectLimit}
	if lookbackHours > 0 {
		filter.CreatedAfter = now.Add(-time.Duration(lookbackHours) * time.Hour)
	}

	runs, err := c.store.ListRuns(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.Total = len(runs)
	var yieldWeighted float64
	var totalDuration time.Duration

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.Complete++
			totalDuration += r.Duration()
			if r.Summary != nil {
				snap.RowsPredicted += r.Summary.Rows
				snap.RowsSuitable += r.Summary.Suitable
				yieldWeighted += r.Summary.MeanYield * float64(r.Summary.Rows)
			}
		case model.RunStatusFailed:
			snap.Failed++
			if snap.ErrorsByKind == nil {
				snap.ErrorsByKind = make(map[string]int)
			}
			snap.ErrorsByKind[r.ErrorKind]++
		case model.RunStatusRunning:
			snap.Running++
		}
	}

	if finished := snap.Complete + snap.Failed; finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(finished)
	}
	if snap.RowsPredicted > 0 {
		snap.SuitableShare = float64(snap.RowsSuitable) / float64(snap.RowsPredicted)
		snap.MeanYield = yieldWeighted / float64(snap.RowsPredicted)
	}
	if snap.Complete > 0 {
		snap.AvgDuration = totalDuration.Seconds() / float64(snap.Complete)
	}

	return snap, nil
}
