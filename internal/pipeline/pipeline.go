// Package pipeline runs the scoring batch: load both tables, index the plate
// boundaries, score every measurement, pick the site shortlist, group the
// boundary paths and write the output files.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geothermal-cli/internal/config"
	"github.com/sells-group/geothermal-cli/internal/dataset"
	"github.com/sells-group/geothermal-cli/internal/export"
	"github.com/sells-group/geothermal-cli/internal/geo"
	"github.com/sells-group/geothermal-cli/internal/model"
	"github.com/sells-group/geothermal-cli/internal/monitoring"
	"github.com/sells-group/geothermal-cli/internal/scorer"
	"github.com/sells-group/geothermal-cli/internal/sites"
	"github.com/sells-group/geothermal-cli/internal/store"
)

// Stage names used in logs and metrics.
const (
	StageLoad   = "load"
	StageIndex  = "index"
	StageScore  = "score"
	StageSelect = "select"
	StagePaths  = "paths"
	StageExport = "export"
)

// Pipeline orchestrates one scoring run.
type Pipeline struct {
	cfg     *config.Config
	loader  *dataset.Loader
	store   store.Store
	metrics *monitoring.Metrics
	now     func() time.Time
}

// New creates a Pipeline. st may be nil to skip run history.
func New(cfg *config.Config, loader *dataset.Loader, st store.Store) *Pipeline {
	if loader == nil {
		loader = dataset.NewLoader(nil)
	}
	return &Pipeline{
		cfg:     cfg,
		loader:  loader,
		store:   st,
		metrics: monitoring.NewMetrics(),
		now:     time.Now,
	}
}

// Metrics returns the gauges updated by Run.
func (p *Pipeline) Metrics() *monitoring.Metrics {
	return p.metrics
}

// Result is the outcome of a successful run.
type Result struct {
	RunID   string
	Scored  []model.Measurement
	Sites   []model.SiteCandidate
	Paths   []model.BoundaryPath
	Bands   map[string]int
	Summary *model.RunSummary
}

// Run executes the full batch. Any stage error aborts the run; no output file
// is replaced unless every output encoded successfully.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("component", "pipeline"))
	start := p.now()

	runID, err := p.createRun(ctx)
	if err != nil {
		return nil, err
	}
	if runID != "" {
		log = log.With(zap.String("run_id", runID))
	}
	log.Info("pipeline: starting run",
		zap.String("measurements", p.cfg.Input.Measurements.Path),
		zap.String("boundaries", p.cfg.Input.Boundaries.Path),
	)

	result, err := p.execute(ctx, log)
	if err != nil {
		p.fail(ctx, log, runID, err)
		return nil, err
	}
	result.RunID = runID
	result.Summary.DurationSeconds = p.now().Sub(start).Seconds()

	if runID != "" {
		if err := p.store.CompleteRun(ctx, runID, result.Summary, result.Sites); err != nil {
			// Outputs are already on disk but the history has no sites for them.
			err = eris.Wrap(err, "pipeline: complete run")
			p.fail(ctx, log, runID, err)
			return nil, err
		}
	}
	p.metrics.RecordSummary(result.Summary, p.now())
	p.writeMetrics(log)

	log.Info("pipeline: run complete",
		zap.Int("measurements", result.Summary.Measurements),
		zap.Int("sites", result.Summary.SitesSelected),
		zap.Int("plates", result.Summary.Plates),
		zap.Float64("duration_s", result.Summary.DurationSeconds),
	)
	return result, nil
}

func (p *Pipeline) execute(ctx context.Context, log *zap.Logger) (*Result, error) {
	var (
		measurements []model.Measurement
		mStats       *dataset.LoadStats
		boundaries   []model.BoundaryPoint
		bStats       *dataset.LoadStats
	)

	// Both tables load independently.
	err := p.stage(log, StageLoad, func() error {
		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var loadErr error
			measurements, mStats, loadErr = p.loader.Measurements(gCtx, p.cfg.Input.Measurements)
			return loadErr
		})
		g.Go(func() error {
			var loadErr error
			boundaries, bStats, loadErr = p.loader.Boundaries(gCtx, p.cfg.Input.Boundaries)
			return loadErr
		})
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}
	if bStats.TotalDropped() > 0 {
		log.Warn("pipeline: dropped boundary rows", zap.Any("dropped", bStats.Dropped))
	}

	var idx *geo.Index
	err = p.stage(log, StageIndex, func() error {
		var idxErr error
		idx, idxErr = geo.NewIndex(boundaries)
		return idxErr
	})
	if err != nil {
		return nil, err
	}

	var scored *scorer.Result
	err = p.stage(log, StageScore, func() error {
		var scoreErr error
		scored, scoreErr = scorer.NewEngine(idx, p.cfg.Score).Score(ctx, measurements)
		return scoreErr
	})
	if err != nil {
		return nil, err
	}

	var selected []model.SiteCandidate
	_ = p.stage(log, StageSelect, func() error {
		selected = sites.Select(scored.Measurements, p.cfg.Sites)
		return nil
	})
	bands := sites.CountByBand(selected, p.cfg.Score.SigmaKM)
	log.Info("pipeline: selected sites", zap.Int("count", len(selected)), zap.Any("bands", bands))

	var paths []model.BoundaryPath
	_ = p.stage(log, StagePaths, func() error {
		paths = geo.BuildPaths(boundaries)
		return nil
	})

	var outputs []string
	err = p.stage(log, StageExport, func() error {
		files, exportErr := export.RunFiles(p.cfg.Output, scored.Measurements, selected, paths)
		if exportErr != nil {
			return exportErr
		}
		outputs, exportErr = export.WriteFiles(p.cfg.Output.Dir, files)
		return exportErr
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Scored: scored.Measurements,
		Sites:  selected,
		Paths:  paths,
		Bands:  bands,
		Summary: &model.RunSummary{
			RowsRead:       mStats.RowsRead,
			Measurements:   len(measurements),
			Dropped:        mStats.Dropped,
			BoundaryPoints: len(boundaries),
			Plates:         len(paths),
			HeatFlowCap:    scored.Cap,
			Stats:          scored.Stats,
			SitesSelected:  len(selected),
			Outputs:        outputs,
		},
	}, nil
}

// Paths loads only the boundary table and writes the path outputs.
func (p *Pipeline) Paths(ctx context.Context) ([]model.BoundaryPath, []string, error) {
	if err := p.cfg.Validate("paths"); err != nil {
		return nil, nil, err
	}
	log := zap.L().With(zap.String("component", "pipeline"))

	boundaries, _, err := p.loader.Boundaries(ctx, p.cfg.Input.Boundaries)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: load boundaries")
	}
	paths := geo.BuildPaths(boundaries)

	files, err := export.PathFiles(p.cfg.Output, paths)
	if err != nil {
		return nil, nil, err
	}
	written, err := export.WriteFiles(p.cfg.Output.Dir, files)
	if err != nil {
		return nil, nil, err
	}
	log.Info("pipeline: wrote boundary paths", zap.Int("plates", len(paths)), zap.Strings("files", written))
	return paths, written, nil
}

func (p *Pipeline) validate() error {
	if err := p.cfg.Validate("run"); err != nil {
		return err
	}
	if err := scorer.ValidateConfig(p.cfg.Score); err != nil {
		return err
	}
	return sites.ValidateConfig(p.cfg.Sites)
}

// stage times fn, logs the outcome and records the duration gauge.
func (p *Pipeline) stage(log *zap.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	p.metrics.RecordStage(name, elapsed)

	if err != nil {
		log.Error("pipeline: stage failed",
			zap.String("stage", name),
			zap.Int64("duration_ms", elapsed.Milliseconds()),
			zap.Error(err),
		)
		return eris.Wrapf(err, "pipeline: %s", name)
	}
	log.Info("pipeline: stage complete",
		zap.String("stage", name),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	)
	return nil
}

func (p *Pipeline) createRun(ctx context.Context) (string, error) {
	if p.store == nil {
		return "", nil
	}
	run, err := p.store.CreateRun(ctx, model.RunInput{
		Measurements: p.cfg.Input.Measurements.Path,
		Boundaries:   p.cfg.Input.Boundaries.Path,
	})
	if err != nil {
		return "", eris.Wrap(err, "pipeline: create run")
	}
	return run.ID, nil
}

func (p *Pipeline) fail(ctx context.Context, log *zap.Logger, runID string, cause error) {
	if runID != "" {
		// The run context may already be cancelled; the failure still gets recorded.
		if err := p.store.FailRun(context.WithoutCancel(ctx), runID, cause.Error()); err != nil {
			log.Warn("pipeline: failed to record run failure", zap.Error(err))
		}
	}
	p.metrics.RecordFailure(p.now())
	p.writeMetrics(log)
}

func (p *Pipeline) writeMetrics(log *zap.Logger) {
	path := p.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	if err := p.metrics.WriteTextfile(path); err != nil {
		log.Warn("pipeline: failed to write metrics textfile", zap.Error(err))
	}
}
