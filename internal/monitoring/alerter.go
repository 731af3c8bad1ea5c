package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geothermal-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertRunFailureRate AlertType = "run_failure_rate"
	AlertStaleResults   AlertType = "stale_results"
	AlertStuckRun       AlertType = "stuck_run"
)

// minFinishedRuns is the number of finished runs needed before the failure
// rate is considered meaningful.
const minFinishedRuns = 3

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds and sends
// alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := snap.CollectedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	finished := snap.RunsComplete + snap.RunsFailed
	if finished >= minFinishedRuns && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertRunFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Run failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.RunsFailed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.RunsFailed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	if a.cfg.StaleAfterHours > 0 {
		limit := time.Duration(a.cfg.StaleAfterHours) * time.Hour
		switch {
		case snap.LastCompleteAt == nil:
			alerts = append(alerts, Alert{
				Type:      AlertStaleResults,
				Severity:  "medium",
				Message:   "No run has completed yet; published outputs may be missing",
				Timestamp: now,
			})
		case now.Sub(*snap.LastCompleteAt) > limit:
			age := now.Sub(*snap.LastCompleteAt)
			alerts = append(alerts, Alert{
				Type:     AlertStaleResults,
				Severity: "medium",
				Message: fmt.Sprintf(
					"Last completed run %s finished %.1fh ago (threshold %dh)",
					snap.LastCompleteID, age.Hours(), a.cfg.StaleAfterHours,
				),
				Details: map[string]any{
					"run_id":    snap.LastCompleteID,
					"age_hours": age.Hours(),
				},
				Timestamp: now,
			})
		}
	}

	if a.cfg.StuckAfterMinutes > 0 && snap.OldestRunningSince != nil {
		limit := time.Duration(a.cfg.StuckAfterMinutes) * time.Minute
		if age := now.Sub(*snap.OldestRunningSince); age > limit {
			alerts = append(alerts, Alert{
				Type:     AlertStuckRun,
				Severity: "medium",
				Message: fmt.Sprintf(
					"Run %s has been running for %.0fm (threshold %dm); it may have been interrupted",
					snap.OldestRunningID, age.Minutes(), a.cfg.StuckAfterMinutes,
				),
				Details: map[string]any{
					"run_id":      snap.OldestRunningID,
					"age_minutes": age.Minutes(),
					"running":     snap.RunsRunning,
				},
				Timestamp: now,
			})
		}
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
