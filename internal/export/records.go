// Package export encodes scored measurements, selected sites and boundary
// paths into the static files read by the map front end.
package export

import (
	"github.com/sells-group/geothermal-cli/internal/model"
	"github.com/sells-group/geothermal-cli/internal/scorer"
)

// Output precision.
const (
	CoordDecimals = 4
	ScoreDecimals = scorer.ScoreDecimals
	ValueDecimals = 1
)

// HeatmapRecord is one point of the heat map layer.
type HeatmapRecord struct {
	Coordinates model.LonLat `json:"coordinates"`
	Score       float64      `json:"score"`
	HeatFlow    float64      `json:"hf"`
	DistanceKM  float64      `json:"bd"`
}

// HeatmapRecords converts scored measurements to heat map records in input
// order.
func HeatmapRecords(scored []model.Measurement) []HeatmapRecord {
	out := make([]HeatmapRecord, len(scored))
	for i, m := range scored {
		out[i] = HeatmapRecord{
			Coordinates: roundLonLat(model.LonLat{m.Lon, m.Lat}),
			Score:       scorer.Round(m.Score, ScoreDecimals),
			HeatFlow:    scorer.Round(m.HeatFlow, ValueDecimals),
			DistanceKM:  scorer.Round(m.DistanceKM, ValueDecimals),
		}
	}
	return out
}

// SiteRecords returns a rounded copy of the shortlist, keeping rank order.
func SiteRecords(sites []model.SiteCandidate) []model.SiteCandidate {
	out := make([]model.SiteCandidate, len(sites))
	for i, s := range sites {
		out[i] = model.SiteCandidate{
			Rank:       s.Rank,
			Lat:        scorer.Round(s.Lat, CoordDecimals),
			Lon:        scorer.Round(s.Lon, CoordDecimals),
			Score:      scorer.Round(s.Score, ScoreDecimals),
			HeatFlow:   scorer.Round(s.HeatFlow, ValueDecimals),
			DistanceKM: scorer.Round(s.DistanceKM, ValueDecimals),
		}
	}
	return out
}

// PathRecords returns a copy of paths with every vertex rounded.
func PathRecords(paths []model.BoundaryPath) []model.BoundaryPath {
	out := make([]model.BoundaryPath, len(paths))
	for i, p := range paths {
		pts := make([]model.LonLat, len(p.Points))
		for j, pt := range p.Points {
			pts[j] = roundLonLat(pt)
		}
		out[i] = model.BoundaryPath{PlateID: p.PlateID, Points: pts}
	}
	return out
}

func roundLonLat(p model.LonLat) model.LonLat {
	return model.LonLat{scorer.Round(p[0], CoordDecimals), scorer.Round(p[1], CoordDecimals)}
}
