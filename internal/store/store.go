// Package store persists run history: one record per pipeline execution plus
// the sites it selected.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geothermal-cli/internal/config"
	"github.com/sells-group/geothermal-cli/internal/model"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = eris.New("store: run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for run history.
type Store interface {
	CreateRun(ctx context.Context, input model.RunInput) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary, sites []model.SiteCandidate) error
	FailRun(ctx context.Context, runID string, reason string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	ListSites(ctx context.Context, runID string) ([]model.SiteCandidate, error)

	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// Open returns the store selected by cfg.Driver, migrated and ready to use.
// Driver "none" yields a nil Store and no error.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case config.DriverNone, "":
		return nil, nil
	case config.DriverSQLite:
		st, err = NewSQLite(cfg.DatabaseURL)
	case config.DriverPostgres:
		st, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
