package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
)

// Prediction outcome labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds the Prometheus collectors for the prediction pipeline.
type Metrics struct {
	PredictionTotal    *prometheus.CounterVec
	PredictionErrors   *prometheus.CounterVec
	PredictionDuration prometheus.Histogram
	RowsPredicted      prometheus.Counter
	SuitablePredicted  prometheus.Counter
	ArtifactLoadTotal  *prometheus.CounterVec
	ArtifactsLoaded    prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates the pipeline collectors and registers them with registry.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,
		PredictionTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agri_predictions_total",
				Help: "Total number of prediction requests by outcome.",
			},
			[]string{"source", "status"},
		),
		PredictionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agri_prediction_errors_total",
				Help: "Total number of failed predictions by error kind.",
			},
			[]string{"kind"},
		),
		PredictionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agri_prediction_duration_seconds",
				Help:    "Time taken to parse an upload and run both models.",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
			},
		),
		RowsPredicted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "agri_rows_predicted_total",
				Help: "Total number of farm rows run through the models.",
			},
		),
		SuitablePredicted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "agri_rows_suitable_total",
				Help: "Total number of farm rows predicted suitable.",
			},
		),
		ArtifactLoadTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agri_artifact_loads_total",
				Help: "Total number of model artifact load attempts by outcome.",
			},
			[]string{"status"},
		),
		ArtifactsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "agri_artifacts_loaded",
				Help: "Whether the model artifacts are loaded (1) or not (0).",
			},
		),
	}

	if err := registry.Register(m); err != nil {
		return nil, eris.Wrap(err, "monitoring: register metrics")
	}
	return m, nil
}

// Registry returns the registry the collectors were registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordPrediction records one prediction attempt. kind is the error kind
// when err is non-nil.
func (m *Metrics) RecordPrediction(source string, elapsed time.Duration, rows, suitable int, kind string, err error) {
	if err != nil {
		m.PredictionTotal.WithLabelValues(source, StatusError).Inc()
		m.PredictionErrors.WithLabelValues(kind).Inc()
		return
	}
	m.PredictionTotal.WithLabelValues(source, StatusSuccess).Inc()
	m.PredictionDuration.Observe(elapsed.Seconds())
	m.RowsPredicted.Add(float64(rows))
	m.SuitablePredicted.Add(float64(suitable))
}

// RecordArtifactLoad records an artifact load attempt.
func (m *Metrics) RecordArtifactLoad(err error) {
	if err != nil {
		m.ArtifactLoadTotal.WithLabelValues(StatusError).Inc()
		m.ArtifactsLoaded.Set(0)
		return
	}
	m.ArtifactLoadTotal.WithLabelValues(StatusSuccess).Inc()
	m.ArtifactsLoaded.Set(1)
}

// Describe implements the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.PredictionTotal.Describe(ch)
	m.PredictionErrors.Describe(ch)
	ch <- m.PredictionDuration.Desc()
	ch <- m.RowsPredicted.Desc()
	ch <- m.SuitablePredicted.Desc()
	m.ArtifactLoadTotal.Describe(ch)
	ch <- m.ArtifactsLoaded.Desc()
}

// Collect implements the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.PredictionTotal.Collect(ch)
	m.PredictionErrors.Collect(ch)
	ch <- m.PredictionDuration
	ch <- m.RowsPredicted
	ch <- m.SuitablePredicted
	m.ArtifactLoadTotal.Collect(ch)
	ch <- m.ArtifactsLoaded
}
