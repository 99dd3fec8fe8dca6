// Package store persists prediction run history.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/agri-cli/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	Source       string          `json:"source,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// DefaultListLimit caps ListRuns when the filter sets no limit.
const DefaultListLimit = 100

// Store defines the persistence interface for prediction runs.
type Store interface {
	CreateRun(ctx context.Context, source string) (*model.PredictionRun, error)
	CompleteRun(ctx context.Context, runID string, summary model.PredictionSummary) error
	FailRun(ctx context.Context, runID string, kind, message string) error
	GetRun(ctx context.Context, runID string) (*model.PredictionRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.PredictionRun, error)

	Migrate(ctx context.Context) error
	Close() error
}
