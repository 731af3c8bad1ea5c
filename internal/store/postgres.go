package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geothermal-cli/internal/db"
	"github.com/sells-group/geothermal-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// siteColumns is the COPY column order for the sites table.
var siteColumns = []string{"run_id", "rank", "lat", "lon", "score", "heat_flow", "distance_km"}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_run":   `INSERT INTO runs (id, input, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
	"complete_run": `UPDATE runs SET summary = $1, status = $2, error = NULL, updated_at = $3 WHERE id = $4`,
	"fail_run":     `UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
	"get_run":      `SELECT id, input, status, summary, error, created_at, updated_at FROM runs WHERE id = $1`,
	"list_sites":   `SELECT rank, lat, lon, score, heat_flow, distance_km FROM sites WHERE run_id = $1 ORDER BY rank`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	input      JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    JSONB,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sites (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	rank        INTEGER NOT NULL,
	lat         DOUBLE PRECISION NOT NULL,
	lon         DOUBLE PRECISION NOT NULL,
	score       DOUBLE PRECISION NOT NULL,
	heat_flow   DOUBLE PRECISION NOT NULL,
	distance_km DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, rank)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, input model.RunInput) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal input")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, input, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, inputJSON, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Input:     input,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CompleteRun marks the run complete and replaces its site list in one
// transaction, so a run is never complete without its sites.
func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary, sites []model.SiteCandidate) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	rows := make([][]any, 0, len(sites))
	for _, c := range sites {
		rows = append(rows, []any{runID, c.Rank, c.Lat, c.Lon, c.Score, c.HeatFlow, c.DistanceKM})
	}

	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE runs SET summary = $1, status = $2, error = NULL, updated_at = $3 WHERE id = $4`,
			summaryJSON, string(model.RunStatusComplete), time.Now().UTC(), runID,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: complete run %s", runID)
		}
		if tag.RowsAffected() == 0 {
			return eris.Wrapf(ErrRunNotFound, "postgres: run %s", runID)
		}

		_, err = db.ReplaceRows(ctx, tx, db.ReplaceConfig{
			Table:     "sites",
			KeyColumn: "run_id",
			Key:       runID,
			Columns:   siteColumns,
		}, rows)
		return eris.Wrapf(err, "postgres: save sites for run %s", runID)
	})
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), reason, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrRunNotFound, "postgres: run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanPgRun(s.pool.QueryRow(ctx,
		`SELECT id, input, status, summary, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, input, status, summary, error, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.CreatedAfter.UTC())
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) ListSites(ctx context.Context, runID string) ([]model.SiteCandidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT rank, lat, lon, score, heat_flow, distance_km FROM sites WHERE run_id = $1 ORDER BY rank`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list sites for run %s", runID)
	}
	defer rows.Close()

	var sites []model.SiteCandidate
	for rows.Next() {
		var c model.SiteCandidate
		if err := rows.Scan(&c.Rank, &c.Lat, &c.Lon, &c.Score, &c.HeatFlow, &c.DistanceKM); err != nil {
			return nil, eris.Wrap(err, "postgres: scan site")
		}
		sites = append(sites, c)
	}
	return sites, eris.Wrap(rows.Err(), "postgres: list sites iterate")
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var inputJSON []byte
	var summaryJSON []byte
	var errText *string

	if err := row.Scan(&r.ID, &inputJSON, &r.Status, &summaryJSON, &errText, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(inputJSON, &r.Input); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal input")
	}
	if len(summaryJSON) > 0 && string(summaryJSON) != "null" {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal(summaryJSON, r.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
	}
	if errText != nil {
		r.Error = *errText
	}
	return &r, nil
}
