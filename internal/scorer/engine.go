package scorer

import (
	"context"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geothermal-cli/internal/config"
	"github.com/sells-group/geothermal-cli/internal/model"
)

// ErrNoMeasurements is returned when there is nothing to score.
var ErrNoMeasurements = eris.New("scorer: no measurements to score")

// minChunk keeps per-goroutine work large enough to amortize scheduling.
const minChunk = 256

// NearestFinder returns the distance in kilometers from a point to the
// nearest plate boundary.
type NearestFinder interface {
	NearestKM(lat, lon float64) float64
}

// Result holds the scored measurements and run-level statistics.
type Result struct {
	Measurements []model.Measurement
	Cap          float64
	Stats        model.ScoreStats
}

// Engine scores measurements against a boundary index.
type Engine struct {
	index NearestFinder
	cfg   config.ScoreConfig
}

// NewEngine creates an Engine with the given index and config.
func NewEngine(index NearestFinder, cfg config.ScoreConfig) *Engine {
	return &Engine{index: index, cfg: cfg}
}

// Score returns a scored copy of measurements in input order.
//
// The heat-flow cap is the CapQuantile of the current measurements, so scores
// are relative to the dataset being scored. Every heat flow must be finite and
// positive, as dataset loading guarantees. Boundary lookups run in parallel;
// every other step is deterministic.
func (e *Engine) Score(ctx context.Context, measurements []model.Measurement) (*Result, error) {
	if len(measurements) == 0 {
		return nil, ErrNoMeasurements
	}
	if err := ValidateConfig(e.cfg); err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("component", "scorer"))
	start := time.Now()

	heatFlows := make([]float64, len(measurements))
	for i, m := range measurements {
		if !(m.HeatFlow > 0) || math.IsInf(m.HeatFlow, 1) {
			return nil, eris.Errorf("scorer: measurement %d has invalid heat flow %g", i, m.HeatFlow)
		}
		heatFlows[i] = m.HeatFlow
	}
	capValue := Quantile(heatFlows, e.cfg.CapQuantile)
	if !(capValue > 0) {
		return nil, eris.Errorf("scorer: heat flow cap must be > 0, got %g", capValue)
	}

	scored := make([]model.Measurement, len(measurements))

	workers := e.cfg.Concurrency
	if workers <= 0 {
		workers = 1
	}
	chunk := (len(measurements) + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < len(measurements); lo += chunk {
		hi := min(lo+chunk, len(measurements))
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return eris.Wrap(err, "scorer: context cancelled")
			}
			for i := lo; i < hi; i++ {
				scored[i] = e.scoreOne(measurements[i], capValue)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := Summarize(scored)
	log.Info("scoring complete",
		zap.Int("measurements", len(scored)),
		zap.Float64("heat_flow_cap", capValue),
		zap.Float64("score_min", stats.Min),
		zap.Float64("score_mean", stats.Mean),
		zap.Float64("score_max", stats.Max),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{Measurements: scored, Cap: capValue, Stats: stats}, nil
}

func (e *Engine) scoreOne(m model.Measurement, capValue float64) model.Measurement {
	m.DistanceKM = e.index.NearestKM(m.Lat, m.Lon)
	m.HFScore = NormalizeHeatFlow(m.HeatFlow, capValue)
	m.Proximity = Proximity(m.DistanceKM, e.cfg.SigmaKM)
	m.Score = Composite(m.HFScore, m.Proximity, e.cfg.HeatWeight)
	return m
}

// Summarize returns the min, mean and max composite score. The zero value is
// returned for an empty slice.
func Summarize(scored []model.Measurement) model.ScoreStats {
	if len(scored) == 0 {
		return model.ScoreStats{}
	}
	stats := model.ScoreStats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, m := range scored {
		stats.Min = math.Min(stats.Min, m.Score)
		stats.Max = math.Max(stats.Max, m.Score)
		sum += m.Score
	}
	stats.Mean = sum / float64(len(scored))
	return stats
}
