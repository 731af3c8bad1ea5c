package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/geothermal-cli/internal/config"
)

// Checker watches run history in the background: each tick it takes a
// snapshot, raises alerts for failing, stale or stuck runs and sends them.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig
}

// NewChecker creates a background run-health checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
	}
}

// Run checks once immediately, then every CheckIntervalSecs until ctx is
// cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("monitoring: watching run history",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours),
		zap.Int("stale_after_hours", c.cfg.StaleAfterHours),
		zap.Int("stuck_after_minutes", c.cfg.StuckAfterMinutes),
	)

	if ctx.Err() == nil {
		c.Check(ctx, log)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("monitoring: checker stopped")
			return
		case <-ticker.C:
			c.Check(ctx, log)
		}
	}
}

// Check evaluates one snapshot of run history and sends any alerts it raises.
func (c *Checker) Check(ctx context.Context, log *zap.Logger) []Alert {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		log.Error("monitoring: failed to collect snapshot", zap.Error(err))
		return nil
	}

	fields := []zap.Field{
		zap.Int("runs", snap.RunsTotal),
		zap.Int("failed", snap.RunsFailed),
		zap.Int("running", snap.RunsRunning),
		zap.Float64("avg_max_score", snap.AvgMaxScore),
	}
	if snap.LastCompleteAt != nil {
		fields = append(fields,
			zap.String("last_complete_id", snap.LastCompleteID),
			zap.Duration("last_complete_age", snap.CollectedAt.Sub(*snap.LastCompleteAt)),
		)
	}
	log.Debug("monitoring: run history snapshot", fields...)

	alerts := c.alerter.Evaluate(snap)
	for _, a := range alerts {
		alertLog := log.With(zap.String("alert", string(a.Type)), zap.String("severity", a.Severity))
		if id, ok := a.Details["run_id"].(string); ok {
			alertLog = alertLog.With(zap.String("run_id", id))
		}
		alertLog.Warn(a.Message)
	}
	if len(alerts) == 0 {
		return nil
	}

	sent := c.alerter.SendAlerts(ctx, alerts)
	log.Info("monitoring: alerts raised",
		zap.Int("alerts", len(alerts)),
		zap.Int("sent", sent),
	)
	return alerts
}
