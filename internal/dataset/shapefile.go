package dataset

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geothermal-cli/internal/model"
)

// readShapefileBoundaries flattens every vertex of every record into boundary
// points, tagged with the record's plate attribute. Multi-part records keep
// their part order.
func readShapefileBoundaries(shpPath, plateField string) ([]model.BoundaryPoint, *LoadStats, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	plateIdx := -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(strings.TrimSpace(name), plateField) {
			plateIdx = i
			break
		}
	}
	if plateIdx < 0 {
		return nil, nil, eris.Errorf("dataset: shapefile %s has no %q attribute", shpPath, plateField)
	}

	stats := newStats()
	var points []model.BoundaryPoint
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		plate := strings.TrimSpace(strings.TrimRight(reader.Attribute(plateIdx), "\x00"))

		vertices := shapeVertices(shape)
		if len(vertices) == 0 {
			skipped++
			continue
		}
		for _, p := range vertices {
			lat, lon := p.Y, p.X
			points = appendBoundary(points, stats, &lat, &lon, plate)
		}
	}
	if err := reader.Err(); err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: read shapefile %s", shpPath)
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped shapefile records without vertices",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	stats.Kept = len(points)
	return points, stats, nil
}

func shapeVertices(shape shp.Shape) []shp.Point {
	switch s := shape.(type) {
	case *shp.PolyLine:
		return s.Points
	case *shp.Polygon:
		return s.Points
	case *shp.MultiPoint:
		return s.Points
	case *shp.Point:
		return []shp.Point{*s}
	case *shp.PolyLineZ:
		return s.Points
	case *shp.PolyLineM:
		return s.Points
	default:
		return nil
	}
}
