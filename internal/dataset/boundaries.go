package dataset

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geothermal-cli/internal/config"
	"github.com/sells-group/geothermal-cli/internal/model"
)

// Boundaries loads the configured plate boundary table (.csv or .shp, local
// or remote) and returns the boundary points in source row order.
func (l *Loader) Boundaries(ctx context.Context, cfg config.BoundariesConfig) ([]model.BoundaryPoint, *LoadStats, error) {
	path, err := l.resolve(ctx, cfg.Path, ".shp", ".csv")
	if err != nil {
		return nil, nil, eris.Wrap(err, "dataset: resolve boundaries")
	}

	var points []model.BoundaryPoint
	var stats *LoadStats
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		points, stats, err = readShapefileBoundaries(path, cfg.PlateColumn)
	case ".csv", ".txt":
		points, stats, err = readCSVBoundaries(ctx, path, cfg)
	default:
		err = eris.Errorf("dataset: unsupported boundaries format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, nil, err
	}

	zap.L().Info("loaded boundary points",
		zap.String("source", cfg.Path),
		zap.Int("rows_read", stats.RowsRead),
		zap.Int("kept", stats.Kept),
		zap.Any("dropped", stats.Dropped),
	)
	if len(points) == 0 {
		return nil, stats, ErrNoBoundaries
	}
	return points, stats, nil
}

// BoundaryRow is an unparsed boundary table row.
type BoundaryRow struct {
	Lat, Lon, Plate string
}

// FilterBoundaries parses rows into boundary points, dropping rows without
// usable coordinates. Plate identifiers are kept verbatim apart from
// surrounding whitespace.
func FilterBoundaries(rows []BoundaryRow) ([]model.BoundaryPoint, *LoadStats) {
	stats := newStats()
	out := make([]model.BoundaryPoint, 0, len(rows))
	for _, r := range rows {
		out = appendBoundary(out, stats, parseNumber(r.Lat), parseNumber(r.Lon), r.Plate)
	}
	stats.Kept = len(out)
	return out, stats
}

func appendBoundary(out []model.BoundaryPoint, stats *LoadStats, lat, lon *float64, plate string) []model.BoundaryPoint {
	stats.RowsRead++
	if lat == nil || lon == nil {
		stats.drop(DropMissingCoords)
		return out
	}
	if !validCoords(*lat, *lon) {
		stats.drop(DropOutOfRangeCoords)
		return out
	}
	return append(out, model.BoundaryPoint{Lat: *lat, Lon: *lon, PlateID: strings.TrimSpace(plate)})
}

func readCSVBoundaries(ctx context.Context, path string, cfg config.BoundariesConfig) ([]model.BoundaryPoint, *LoadStats, error) {
	header, rows, err := readCSVTable(ctx, path, csvFormat{
		Delimiter: cfg.Delimiter,
		Comment:   cfg.Comment,
		Encoding:  cfg.Encoding,
	})
	if err != nil {
		return nil, nil, err
	}
	cols, err := requireColumns(headerIndex(header), cfg.LatColumn, cfg.LonColumn, cfg.PlateColumn)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: boundaries %s", path)
	}

	raw := make([]BoundaryRow, 0, len(rows))
	for _, row := range rows {
		raw = append(raw, BoundaryRow{
			Lat:   cell(row, cols[0]),
			Lon:   cell(row, cols[1]),
			Plate: cell(row, cols[2]),
		})
	}
	points, stats := FilterBoundaries(raw)
	return points, stats, nil
}
