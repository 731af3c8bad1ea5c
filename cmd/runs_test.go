//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/geothermal-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:     "abc12345-6789-0000-0000-000000000000",
			Status: model.RunStatusComplete,
			Summary: &model.RunSummary{
				Measurements:  71234,
				SitesSelected: 20,
				Stats:         model.ScoreStats{Max: 0.9871},
			},
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Status:    model.RunStatusRunning,
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-30 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "MAX_SCORE")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "71234")
	assert.Contains(t, output, "0.9871")
	assert.Contains(t, output, "running")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "2m0s")
}

func TestFormatRunsList_FailedRun(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Status:    model.RunStatusFailed,
			Error:     "pipeline: load: dataset: no usable boundary points",
			CreatedAt: now,
			UpdatedAt: now.Add(30 * time.Second),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "-")
}

func TestRunsStats(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

	runs := []model.Run{
		{
			ID:        "1",
			Status:    model.RunStatusComplete,
			Summary:   &model.RunSummary{DurationSeconds: 60, SitesSelected: 20, Stats: model.ScoreStats{Max: 0.91}},
			CreatedAt: now,
		},
		{
			ID:        "2",
			Status:    model.RunStatusComplete,
			Summary:   &model.RunSummary{DurationSeconds: 120, SitesSelected: 18, Stats: model.ScoreStats{Max: 0.95}},
			CreatedAt: now,
		},
		{ID: "3", Status: model.RunStatusFailed, CreatedAt: now},
		{ID: "4", Status: model.RunStatusRunning, CreatedAt: now},
		{ID: "5", Status: model.RunStatusComplete, CreatedAt: now},
	}

	s := computeRunStats(runs)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 3, s.Complete)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Running)
	assert.InDelta(t, 90, s.AvgDurSecs, 1e-9)
	assert.InDelta(t, 19, s.AvgSites, 1e-9)
	assert.InDelta(t, 0.95, s.BestScore, 1e-9)
}

func TestRunsStats_Empty(t *testing.T) {
	s := computeRunStats(nil)
	assert.Equal(t, runStats{}, s)
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{Total: 4, Complete: 3, Failed: 1, AvgDurSecs: 42.5, AvgSites: 19.5, BestScore: 0.97})

	output := buf.String()
	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "42.5s")
	assert.Contains(t, output, "19.5")
	assert.Contains(t, output, "0.9700")
}

func TestFormatRunStats_NoCompleteRuns(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{Total: 1, Failed: 1})

	assert.NotContains(t, buf.String(), "Best score")
	assert.NotContains(t, buf.String(), "Avg duration")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
