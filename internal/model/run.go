package model

import "time"

// RunStatus represents the current state of a prediction run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// PredictionSummary holds aggregate figures for a completed prediction.
type PredictionSummary struct {
	Rows      int     `json:"rows"`
	Suitable  int     `json:"suitable"`
	MeanYield float64 `json:"mean_yield_tons"`
}

// SuitableShare returns the fraction of rows predicted suitable.
func (s PredictionSummary) SuitableShare() float64 {
	if s.Rows == 0 {
		return 0
	}
	return float64(s.Suitable) / float64(s.Rows)
}

// PredictionRun records one invocation of the prediction pipeline. Uploaded
// row values are never stored, only the summary.
type PredictionRun struct {
	ID        string             `json:"id"`
	Source    string             `json:"source"`
	Status    RunStatus          `json:"status"`
	Summary   *PredictionSummary `json:"summary,omitempty"`
	ErrorKind string             `json:"error_kind,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Duration returns how long the run took, or zero while it is still running.
func (r PredictionRun) Duration() time.Duration {
	if r.Status == RunStatusRunning {
		return 0
	}
	return r.UpdatedAt.Sub(r.CreatedAt)
}
