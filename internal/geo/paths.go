package geo

import (
	"sort"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/geothermal-cli/internal/model"
)

// SRIDWGS84 is the spatial reference of every geometry produced here.
const SRIDWGS84 = 4326

// BuildPaths groups boundary points by plate identifier into polylines.
//
// Points keep their input row order within each plate; adjacency follows the
// table, not geography, so the input must already be ordered along each
// plate's trace. Paths are returned sorted by plate identifier.
func BuildPaths(points []model.BoundaryPoint) []model.BoundaryPath {
	groups := make(map[string][]model.LonLat)
	for _, p := range points {
		groups[p.PlateID] = append(groups[p.PlateID], model.LonLat{p.Lon, p.Lat})
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	paths := make([]model.BoundaryPath, 0, len(ids))
	for _, id := range ids {
		paths = append(paths, model.BoundaryPath{PlateID: id, Points: groups[id]})
	}
	return paths
}

// PathLineString converts a boundary path to a WGS84 line string. Single-point
// paths are returned as degenerate two-vertex lines so they stay drawable.
func PathLineString(path model.BoundaryPath) *geom.LineString {
	flat := make([]float64, 0, 2*len(path.Points)+2)
	for _, p := range path.Points {
		flat = append(flat, p[0], p[1])
	}
	if len(path.Points) == 1 {
		flat = append(flat, path.Points[0][0], path.Points[0][1])
	}
	return geom.NewLineStringFlat(geom.XY, flat).SetSRID(SRIDWGS84)
}
