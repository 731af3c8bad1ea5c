package scorer

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geothermal-cli/internal/model"
)

// distanceFunc adapts a function to NearestFinder.
type distanceFunc func(lat, lon float64) float64

func (f distanceFunc) NearestKM(lat, lon float64) float64 { return f(lat, lon) }

// latAsDistance treats latitude as the boundary distance in km.
var latAsDistance = distanceFunc(func(lat, _ float64) float64 { return lat })

func syntheticMeasurements(n int) []model.Measurement {
	ms := make([]model.Measurement, n)
	for i := range ms {
		ms[i] = model.Measurement{
			Lat:      float64(i % 90),
			Lon:      float64(i%360) - 180,
			HeatFlow: 20 + float64((i*37)%400),
		}
	}
	// A few extreme outliers.
	ms[0].HeatFlow = 25000
	ms[n/2].HeatFlow = 9000
	return ms
}

func TestEngineScore_Empty(t *testing.T) {
	e := NewEngine(latAsDistance, DefaultScoreConfig())
	_, err := e.Score(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMeasurements)
}

func TestEngineScore_InvalidConfig(t *testing.T) {
	cfg := DefaultScoreConfig()
	cfg.SigmaKM = 0
	e := NewEngine(latAsDistance, cfg)
	_, err := e.Score(context.Background(), []model.Measurement{{HeatFlow: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sigma_km")
}

func TestEngineScore_RejectsInvalidHeatFlow(t *testing.T) {
	e := NewEngine(latAsDistance, DefaultScoreConfig())
	for _, hf := range []float64{0, -12, math.NaN(), math.Inf(1)} {
		ms := []model.Measurement{{Lat: 1, HeatFlow: 80}, {Lat: 2, HeatFlow: hf}}
		_, err := e.Score(context.Background(), ms)
		require.Error(t, err, "heat flow %v", hf)
		assert.Contains(t, err.Error(), "measurement 1 has invalid heat flow")
	}
}

func TestEngineScore_ClipsOutlier(t *testing.T) {
	ms := []model.Measurement{
		{Lat: 0, HeatFlow: 10},
		{Lat: 0, HeatFlow: 20},
		{Lat: 0, HeatFlow: 1000},
	}
	e := NewEngine(latAsDistance, DefaultScoreConfig())

	res, err := e.Score(context.Background(), ms)
	require.NoError(t, err)

	capValue := 20 + 0.99*980
	assert.InDelta(t, capValue, res.Cap, 1e-9)
	require.Len(t, res.Measurements, 3)
	assert.Equal(t, 1.0, res.Measurements[2].HFScore)
	assert.InDelta(t, 10/capValue, res.Measurements[0].HFScore, 1e-12)
	assert.InDelta(t, 20/capValue, res.Measurements[1].HFScore, 1e-12)
	assert.InDelta(t, 2*res.Measurements[0].HFScore, res.Measurements[1].HFScore, 1e-12)
}

func TestEngineScore_LowQuantileClipsMore(t *testing.T) {
	ms := []model.Measurement{{HeatFlow: 10}, {HeatFlow: 20}, {HeatFlow: 1000}}
	cfg := DefaultScoreConfig()
	cfg.CapQuantile = 0.5
	e := NewEngine(latAsDistance, cfg)

	res, err := e.Score(context.Background(), ms)
	require.NoError(t, err)
	assert.Equal(t, 20.0, res.Cap)
	assert.Equal(t, 0.5, res.Measurements[0].HFScore)
	assert.Equal(t, 1.0, res.Measurements[1].HFScore)
	assert.Equal(t, 1.0, res.Measurements[2].HFScore)
}

func TestEngineScore_Invariants(t *testing.T) {
	ms := syntheticMeasurements(3000)
	e := NewEngine(latAsDistance, DefaultScoreConfig())

	res, err := e.Score(context.Background(), ms)
	require.NoError(t, err)
	require.Len(t, res.Measurements, len(ms))

	for i, m := range res.Measurements {
		assert.Equal(t, ms[i].Lat, m.Lat)
		assert.Equal(t, ms[i].HeatFlow, m.HeatFlow)
		assert.Equal(t, ms[i].Lat, m.DistanceKM)

		assert.GreaterOrEqual(t, m.HFScore, 0.0)
		assert.LessOrEqual(t, m.HFScore, 1.0)
		assert.Greater(t, m.Proximity, 0.0)
		assert.LessOrEqual(t, m.Proximity, 1.0)
		assert.GreaterOrEqual(t, m.Score, 0.0)
		assert.LessOrEqual(t, m.Score, 1.0)

		assert.Equal(t, Round(0.70*m.HFScore+0.30*m.Proximity, 4), m.Score, "row %d", i)
		assert.Equal(t, math.Exp(-m.DistanceKM/300), m.Proximity)
	}
}

func TestEngineScore_DoesNotMutateInput(t *testing.T) {
	ms := syntheticMeasurements(10)
	orig := make([]model.Measurement, len(ms))
	copy(orig, ms)

	_, err := NewEngine(latAsDistance, DefaultScoreConfig()).Score(context.Background(), ms)
	require.NoError(t, err)
	assert.Equal(t, orig, ms)
}

func TestEngineScore_DeterministicAcrossConcurrency(t *testing.T) {
	ms := syntheticMeasurements(5000)

	serialCfg := DefaultScoreConfig()
	serialCfg.Concurrency = 1
	serial, err := NewEngine(latAsDistance, serialCfg).Score(context.Background(), ms)
	require.NoError(t, err)

	parallelCfg := DefaultScoreConfig()
	parallelCfg.Concurrency = 8
	parallel, err := NewEngine(latAsDistance, parallelCfg).Score(context.Background(), ms)
	require.NoError(t, err)

	assert.Equal(t, serial.Measurements, parallel.Measurements)
	assert.Equal(t, serial.Stats, parallel.Stats)
	assert.Equal(t, serial.Cap, parallel.Cap)
}

func TestEngineScore_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(latAsDistance, DefaultScoreConfig()).Score(ctx, syntheticMeasurements(100))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarize(t *testing.T) {
	stats := Summarize([]model.Measurement{{Score: 0.2}, {Score: 0.6}, {Score: 0.4}})
	assert.InDelta(t, 0.2, stats.Min, 1e-12)
	assert.InDelta(t, 0.4, stats.Mean, 1e-12)
	assert.InDelta(t, 0.6, stats.Max, 1e-12)

	assert.Equal(t, model.ScoreStats{}, Summarize(nil))
}
