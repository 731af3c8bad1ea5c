// Package monitoring summarizes run history, raises alerts on it and exports
// per-run Prometheus metrics.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geothermal-cli/internal/model"
	"github.com/sells-group/geothermal-cli/internal/store"
)

// Snapshot holds a point-in-time view of run history.
type Snapshot struct {
	// Runs within the lookback window.
	RunsTotal        int     `json:"runs_total"`
	RunsComplete     int     `json:"runs_complete"`
	RunsFailed       int     `json:"runs_failed"`
	RunsRunning      int     `json:"runs_running"`
	FailRate         float64 `json:"fail_rate"`
	AvgMaxScore      float64 `json:"avg_max_score"`
	AvgSitesSelected float64 `json:"avg_sites_selected"`

	// Oldest run in the window still marked running.
	OldestRunningID    string     `json:"oldest_running_id,omitempty"`
	OldestRunningSince *time.Time `json:"oldest_running_since,omitempty"`

	// Most recent successful run regardless of window.
	LastCompleteID string     `json:"last_complete_id,omitempty"`
	LastCompleteAt *time.Time `json:"last_complete_at,omitempty"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers snapshots from the run store.
type Collector struct {
	store store.Store
	now   func() time.Time
}

// NewCollector creates a new snapshot collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st, now: time.Now}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)
	runs, err := c.store.ListRuns(ctx, store.RunFilter{
		CreatedAfter: cutoff,
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var totalMax float64
	var totalSites int
	var summarized int
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusRunning:
			snap.RunsRunning++
			if snap.OldestRunningSince == nil || r.CreatedAt.Before(*snap.OldestRunningSince) {
				since := r.CreatedAt
				snap.OldestRunningID = r.ID
				snap.OldestRunningSince = &since
			}
		}
		if r.Status == model.RunStatusComplete && r.Summary != nil {
			totalMax += r.Summary.Stats.Max
			totalSites += r.Summary.SitesSelected
			summarized++
		}
	}

	if finished := snap.RunsComplete + snap.RunsFailed; finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if summarized > 0 {
		snap.AvgMaxScore = totalMax / float64(summarized)
		snap.AvgSitesSelected = float64(totalSites) / float64(summarized)
	}

	last, err := c.store.ListRuns(ctx, store.RunFilter{Status: model.RunStatusComplete, Limit: 1})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: latest complete run")
	}
	if len(last) > 0 {
		at := last[0].UpdatedAt
		snap.LastCompleteID = last[0].ID
		snap.LastCompleteAt = &at
	}

	return snap, nil
}
