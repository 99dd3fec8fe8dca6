package main

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/agri-cli/internal/frame"
	"github.com/sells-group/agri-cli/internal/inference"
	"github.com/sells-group/agri-cli/internal/model"
	"github.com/sells-group/agri-cli/internal/monitoring"
	"github.com/sells-group/agri-cli/internal/store"
)

// Run sources recorded in history and metrics.
const (
	sourceCLI  = "cli"
	sourceForm = "form"
	sourceAPI  = "api"
)

// predictor runs the prediction pipeline for one upload and records the
// outcome. Store and metrics are optional.
type predictor struct {
	loader   *inference.Loader
	store    store.Store
	metrics  *monitoring.Metrics
	encoding string
}

// prediction is a successful pipeline result.
type prediction struct {
	RunID   string
	Input   *frame.Frame
	Output  *frame.Frame
	Summary model.PredictionSummary
}

// run parses the upload named name from r and predicts every row.
func (p *predictor) run(ctx context.Context, source, name string, r io.Reader) (*prediction, error) {
	start := time.Now()
	log := zap.L().With(zap.String("source", source), zap.String("upload", name))

	runID := p.begin(ctx, source, log)

	res, err := p.predict(ctx, name, r)
	if err != nil {
		kind := inference.Kind(err)
		log.Warn("prediction failed", zap.String("kind", kind), zap.Error(err))
		p.fail(ctx, runID, kind, err, log)
		if p.metrics != nil {
			p.metrics.RecordPrediction(source, time.Since(start), 0, 0, kind, err)
		}
		return nil, err
	}

	res.RunID = runID
	p.complete(ctx, runID, res.Summary, log)
	if p.metrics != nil {
		p.metrics.RecordPrediction(source, time.Since(start), res.Summary.Rows, res.Summary.Suitable, "", nil)
	}
	log.Info("prediction complete",
		zap.String("run_id", runID),
		zap.Int("rows", res.Summary.Rows),
		zap.Int("suitable", res.Summary.Suitable),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (p *predictor) predict(ctx context.Context, name string, r io.Reader) (*prediction, error) {
	arts, err := p.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	in, err := inference.ParseUpload(ctx, name, r, p.encoding)
	if err != nil {
		return nil, err
	}

	out, err := inference.NewService(arts, nil).Predict(ctx, in)
	if err != nil {
		return nil, err
	}

	return &prediction{Input: in, Output: out, Summary: inference.Summarize(out)}, nil
}

func (p *predictor) begin(ctx context.Context, source string, log *zap.Logger) string {
	if p.store == nil {
		return ""
	}
	run, err := p.store.CreateRun(ctx, source)
	if err != nil {
		log.Warn("record run start", zap.Error(err))
		return ""
	}
	return run.ID
}

func (p *predictor) complete(ctx context.Context, runID string, summary model.PredictionSummary, log *zap.Logger) {
	if p.store == nil || runID == "" {
		return
	}
	if err := p.store.CompleteRun(ctx, runID, summary); err != nil {
		log.Warn("record run completion", zap.String("run_id", runID), zap.Error(err))
	}
}

func (p *predictor) fail(ctx context.Context, runID, kind string, cause error, log *zap.Logger) {
	if p.store == nil || runID == "" {
		return
	}
	if err := p.store.FailRun(ctx, runID, kind, cause.Error()); err != nil {
		log.Warn("record run failure", zap.String("run_id", runID), zap.Error(err))
	}
}
