// Package sites selects a geographically diverse shortlist of high-scoring
// measurement locations.
package sites

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geothermal-cli/internal/config"
	"github.com/sells-group/geothermal-cli/internal/geo"
	"github.com/sells-group/geothermal-cli/internal/model"
)

// DefaultSitesConfig returns the reference shortlist settings: at most 20
// sites, each at least 500 km from every other.
func DefaultSitesConfig() config.SitesConfig {
	return config.SitesConfig{
		MaxSites:        20,
		MinSeparationKM: 500.0,
	}
}

// ValidateConfig checks that a SitesConfig is usable.
func ValidateConfig(c config.SitesConfig) error {
	var errs []string
	if c.MaxSites <= 0 {
		errs = append(errs, fmt.Sprintf("max_sites must be > 0, got %d", c.MaxSites))
	}
	if c.MinSeparationKM < 0 {
		errs = append(errs, fmt.Sprintf("min_separation_km must be >= 0, got %g", c.MinSeparationKM))
	}
	if len(errs) > 0 {
		return eris.Errorf("sites: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Select greedily picks up to cfg.MaxSites measurements in descending score
// order, skipping any candidate closer than cfg.MinSeparationKM (great-circle)
// to a site already accepted. Equal scores keep their input order. Ranks are
// assigned in acceptance order starting at 1. scored is not modified.
// A MaxSites of zero or less selects nothing.
func Select(scored []model.Measurement, cfg config.SitesConfig) []model.SiteCandidate {
	if cfg.MaxSites <= 0 {
		return []model.SiteCandidate{}
	}
	order := make([]int, len(scored))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scored[order[a]].Score > scored[order[b]].Score
	})

	accepted := make([]model.SiteCandidate, 0, cfg.MaxSites)
	for _, i := range order {
		if len(accepted) >= cfg.MaxSites {
			break
		}
		m := scored[i]
		if tooClose(m, accepted, cfg.MinSeparationKM) {
			continue
		}
		accepted = append(accepted, model.SiteCandidate{
			Rank:       len(accepted) + 1,
			Lat:        m.Lat,
			Lon:        m.Lon,
			Score:      m.Score,
			HeatFlow:   m.HeatFlow,
			DistanceKM: m.DistanceKM,
		})
	}
	return accepted
}

func tooClose(m model.Measurement, accepted []model.SiteCandidate, minKM float64) bool {
	for _, s := range accepted {
		if geo.HaversineKM(m.Lat, m.Lon, s.Lat, s.Lon) < minKM {
			return true
		}
	}
	return false
}

// CountByBand tallies selected sites by boundary proximity band.
func CountByBand(selected []model.SiteCandidate, sigmaKM float64) map[string]int {
	counts := make(map[string]int, len(geo.Bands()))
	for _, band := range geo.Bands() {
		counts[band] = 0
	}
	for _, s := range selected {
		counts[geo.ClassifyDistance(s.DistanceKM, sigmaKM)]++
	}
	return counts
}
