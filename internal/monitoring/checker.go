// Package monitoring exports prediction metrics and raises alerts when the
// prediction failure rate climbs.
package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/agri-cli/internal/config"
)

// Checker evaluates prediction health on a fixed interval and posts alerts
// to the configured webhook.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
}

// NewChecker returns a Checker over the run history behind collector.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{collector: collector, alerter: alerter, cfg: cfg}
}

func (c *Checker) interval() time.Duration {
	if c.cfg.CheckIntervalSecs <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.cfg.CheckIntervalSecs) * time.Second
}

// Run checks prediction health every interval until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("watching prediction health",
		zap.Duration("interval", c.interval()),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
		zap.Float64("failure_rate_threshold", c.cfg.FailureRateThreshold),
	)

	ticker := time.NewTicker(c.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("prediction health checks stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

// check runs one evaluation and returns how many alerts were delivered.
func (c *Checker) check(ctx context.Context, log *zap.Logger) int {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		log.Error("monitoring: collect prediction runs", zap.Error(err))
		return 0
	}

	fields := []zap.Field{
		zap.Int("runs", snap.Total),
		zap.Int("failed_runs", snap.Failed),
		zap.Float64("fail_rate", snap.FailRate),
		zap.Int("rows_predicted", snap.RowsPredicted),
	}

	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		log.Debug("monitoring: predictions healthy", fields...)
		return 0
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Warn("monitoring: prediction alerts raised", append(fields,
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)...)
	return sent
}
