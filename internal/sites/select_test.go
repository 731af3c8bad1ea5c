package sites

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geothermal-cli/internal/geo"
	"github.com/sells-group/geothermal-cli/internal/model"
)

// kmPerDegree is the length of one degree of arc on the model sphere.
const kmPerDegree = geo.EarthRadiusKM * math.Pi / 180

// onEquator places a measurement km kilometers east of (0, 0).
func onEquator(km, score float64) model.Measurement {
	return model.Measurement{Lat: 0, Lon: km / kmPerDegree, Score: score, HeatFlow: score * 100}
}

func TestSelect_RejectsTooCloseAcceptsNext(t *testing.T) {
	// second is 400 km east of first; third is 600 km west of first and
	// 1000 km from second. Equal scores keep input priority.
	first := onEquator(0, 0.9)
	second := onEquator(400, 0.9)
	third := onEquator(-600, 0.9)

	got := Select([]model.Measurement{first, second, third}, DefaultSitesConfig())
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, first.Lon, got[0].Lon)
	assert.Equal(t, 2, got[1].Rank)
	assert.Equal(t, third.Lon, got[1].Lon)
}

func TestSelect_ThirdAt600And550(t *testing.T) {
	// first at origin, second 400 km away on the equator, third placed so
	// it is 600 km from first and 550 km from second.
	first := model.Measurement{Lat: 0, Lon: 0, Score: 0.95}
	second := onEquator(400, 0.90)
	third := triangulate(t, first, second, 600, 550)
	third.Score = 0.85

	require.InDelta(t, 600, geo.HaversineKM(first.Lat, first.Lon, third.Lat, third.Lon), 1.5)
	require.InDelta(t, 550, geo.HaversineKM(second.Lat, second.Lon, third.Lat, third.Lon), 1.5)

	got := Select([]model.Measurement{third, second, first}, DefaultSitesConfig())
	require.Len(t, got, 2)
	assert.InDelta(t, 0.95, got[0].Score, 1e-12)
	assert.InDelta(t, 0.85, got[1].Score, 1e-12)
	assert.Equal(t, []int{1, 2}, []int{got[0].Rank, got[1].Rank})
}

// triangulate finds a point north of the equator at distance da from a and
// db from b, where a and b both lie on the equator.
func triangulate(t *testing.T, a, b model.Measurement, da, db float64) model.Measurement {
	t.Helper()
	best := model.Measurement{}
	bestErr := 1e18
	for lat := 0.0; lat <= 10; lat += 0.005 {
		for lon := -2.0; lon <= 6; lon += 0.005 {
			e1 := geo.HaversineKM(a.Lat, a.Lon, lat, lon) - da
			e2 := geo.HaversineKM(b.Lat, b.Lon, lat, lon) - db
			if e := e1*e1 + e2*e2; e < bestErr {
				bestErr = e
				best = model.Measurement{Lat: lat, Lon: lon}
			}
		}
	}
	return best
}

func TestSelect_StableTieBreak(t *testing.T) {
	// Two equal scores 100 km apart: the earlier row wins.
	a := onEquator(0, 0.8)
	a.HeatFlow = 1
	b := onEquator(100, 0.8)
	b.HeatFlow = 2

	got := Select([]model.Measurement{b, a}, DefaultSitesConfig())
	require.Len(t, got, 1)
	assert.Equal(t, 2.0, got[0].HeatFlow)

	got = Select([]model.Measurement{a, b}, DefaultSitesConfig())
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].HeatFlow)
}

func TestSelect_ExactSeparationAccepted(t *testing.T) {
	a := model.Measurement{Lat: 0, Lon: 0, Score: 0.9}
	b := model.Measurement{Lat: 0, Lon: 5, Score: 0.8}
	d := geo.HaversineKM(0, 0, 0, 5)

	cfg := DefaultSitesConfig()
	cfg.MinSeparationKM = d
	got := Select([]model.Measurement{a, b}, cfg)
	assert.Len(t, got, 2)
}

func TestSelect_CapAndInvariants(t *testing.T) {
	var ms []model.Measurement
	for lat := -80.0; lat <= 80; lat += 4 {
		for lon := -180.0; lon < 180; lon += 4 {
			score := 0.5 + 0.4*(lat+80)/160 - 0.001*(lon+180)/360
			ms = append(ms, model.Measurement{Lat: lat, Lon: lon, Score: score})
		}
	}

	cfg := DefaultSitesConfig()
	got := Select(ms, cfg)
	require.Len(t, got, cfg.MaxSites)

	for i, s := range got {
		assert.Equal(t, i+1, s.Rank)
		if i > 0 {
			assert.LessOrEqual(t, s.Score, got[i-1].Score)
		}
		for j := i + 1; j < len(got); j++ {
			d := geo.HaversineKM(s.Lat, s.Lon, got[j].Lat, got[j].Lon)
			assert.GreaterOrEqual(t, d, cfg.MinSeparationKM, "sites %d and %d", i+1, j+1)
		}
	}
}

func TestSelect_FewerThanCap(t *testing.T) {
	// Everything within 100 km of the origin: only one site survives.
	ms := []model.Measurement{
		onEquator(0, 0.5),
		onEquator(50, 0.7),
		onEquator(90, 0.6),
	}
	got := Select(ms, DefaultSitesConfig())
	require.Len(t, got, 1)
	assert.InDelta(t, 0.7, got[0].Score, 1e-12)
}

func TestSelect_EmptyAndNoMutation(t *testing.T) {
	assert.Empty(t, Select(nil, DefaultSitesConfig()))

	ms := []model.Measurement{onEquator(0, 0.1), onEquator(1000, 0.9)}
	orig := append([]model.Measurement(nil), ms...)
	got := Select(ms, DefaultSitesConfig())
	assert.Equal(t, orig, ms)
	require.Len(t, got, 2)
	assert.InDelta(t, 0.9, got[0].Score, 1e-12)
}

func TestSelect_CopiesFields(t *testing.T) {
	m := model.Measurement{Lat: 12.3, Lon: 45.6, HeatFlow: 88, DistanceKM: 123, Score: 0.77}
	got := Select([]model.Measurement{m}, DefaultSitesConfig())
	require.Len(t, got, 1)
	assert.Equal(t, model.SiteCandidate{Rank: 1, Lat: 12.3, Lon: 45.6, Score: 0.77, HeatFlow: 88, DistanceKM: 123}, got[0])
}

func TestSelect_NonPositiveMaxSites(t *testing.T) {
	scored := []model.Measurement{onEquator(0, 0.9), onEquator(1000, 0.8)}
	for _, n := range []int{0, -3} {
		cfg := DefaultSitesConfig()
		cfg.MaxSites = n
		got := Select(scored, cfg)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, ValidateConfig(DefaultSitesConfig()))

	cfg := DefaultSitesConfig()
	cfg.MaxSites = 0
	cfg.MinSeparationKM = -1
	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_sites")
	assert.Contains(t, err.Error(), "min_separation_km")
}

func TestCountByBand(t *testing.T) {
	got := CountByBand([]model.SiteCandidate{
		{DistanceKM: 10},
		{DistanceKM: 200},
		{DistanceKM: 250},
		{DistanceKM: 5000},
	}, 300)
	assert.Equal(t, map[string]int{
		geo.BandOnBoundary: 1,
		geo.BandNear:       2,
		geo.BandModerate:   0,
		geo.BandDistal:     1,
	}, got)
}
