package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/agri-cli/internal/config"
)

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	snap := &MetricsSnapshot{
		Total:         100,
		Complete:      95,
		Failed:        5,
		FailRate:      0.05,
		ErrorsByKind:  map[string]int{"malformed_input": 5},
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	assert.Empty(t, alerts)
}

func TestAlerter_Evaluate_FailureRate(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	snap := &MetricsSnapshot{
		Total:         20,
		Complete:      12,
		Failed:        8,
		FailRate:      0.4,
		ErrorsByKind:  map[string]int{"missing_columns": 8},
		LookbackHours: 24,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertPredictionFailureRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
}

func TestAlerter_Evaluate_SmallSampleIgnored(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.10})

	snap := &MetricsSnapshot{Complete: 1, Failed: 3, FailRate: 0.75, LookbackHours: 24}
	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_ArtifactsMissing(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.99})

	snap := &MetricsSnapshot{
		Failed:        2,
		FailRate:      1,
		ErrorsByKind:  map[string]int{"missing_artifact": 2},
		LookbackHours: 6,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertArtifactsMissing, alerts[0].Type)
	assert.Equal(t, "critical", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "2 prediction(s)")
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		err := json.NewDecoder(r.Body).Decode(&alert)
		assert.NoError(t, err)
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	alerts := []Alert{
		{Type: AlertPredictionFailureRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertArtifactsMissing, Severity: "critical", Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{WebhookURL: ""})

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertPredictionFailureRate, Message: "test"},
	})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{WebhookURL: "http://example.com"})

	sent := a.SendAlerts(context.Background(), nil)
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertPredictionFailureRate, Message: "test"},
	})
	assert.Equal(t, 0, sent)
}
