package model

import "time"

// RunStatus represents the current state of a scoring run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// ScoreStats summarizes the composite score distribution of a run.
type ScoreStats struct {
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	Max  float64 `json:"max"`
}

// RunSummary holds the observable outcome of a completed run.
type RunSummary struct {
	RowsRead        int            `json:"rows_read"`
	Measurements    int            `json:"measurements"`
	Dropped         map[string]int `json:"dropped,omitempty"`
	BoundaryPoints  int            `json:"boundary_points"`
	Plates          int            `json:"plates"`
	HeatFlowCap     float64        `json:"heat_flow_cap"`
	Stats           ScoreStats     `json:"stats"`
	SitesSelected   int            `json:"sites_selected"`
	Outputs         []string       `json:"outputs,omitempty"`
	DurationSeconds float64        `json:"duration_seconds"`
}

// RunInput records where a run read its data from.
type RunInput struct {
	Measurements string `json:"measurements"`
	Boundaries   string `json:"boundaries"`
}

// Run is a persisted record of a single pipeline execution.
type Run struct {
	ID        string      `json:"id"`
	Input     RunInput    `json:"input"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
