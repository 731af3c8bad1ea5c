package dataset

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geothermal-cli/internal/config"
	"github.com/sells-group/geothermal-cli/internal/fetcher"
	"github.com/sells-group/geothermal-cli/internal/model"
)

// Measurements loads the configured heat-flow table (.xlsx or .csv, local or
// remote) and returns the usable measurements in source row order.
//
// For XLSX sources cfg.HeaderRow is the zero-based row holding the column
// names; CSV sources always carry their header on the first line and use
// cfg.Delimiter and cfg.Comment as their dialect.
func (l *Loader) Measurements(ctx context.Context, cfg config.MeasurementsConfig) ([]model.Measurement, *LoadStats, error) {
	path, err := l.resolve(ctx, cfg.Path, ".xlsx", ".csv")
	if err != nil {
		return nil, nil, eris.Wrap(err, "dataset: resolve measurements")
	}

	var header []string
	var rows [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		header, rows, err = readXLSXTable(path, cfg)
	case ".csv", ".txt":
		header, rows, err = readCSVTable(ctx, path, csvFormat{
			Delimiter: cfg.Delimiter,
			Comment:   cfg.Comment,
			Encoding:  cfg.Encoding,
		})
	default:
		err = eris.Errorf("dataset: unsupported measurements format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, nil, err
	}

	raws, err := rawMeasurements(header, rows, cfg)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: measurements %s", cfg.Path)
	}

	out, stats := FilterMeasurements(raws)
	zap.L().Info("loaded measurements",
		zap.String("source", cfg.Path),
		zap.Int("rows_read", stats.RowsRead),
		zap.Int("kept", stats.Kept),
		zap.Any("dropped", stats.Dropped),
	)
	if len(out) == 0 {
		return nil, stats, ErrNoMeasurements
	}
	return out, stats, nil
}

// FilterMeasurements resolves heat flow (corrected value first, raw value as
// fallback) and keeps rows with coordinates in range and positive heat flow.
func FilterMeasurements(raws []model.RawMeasurement) ([]model.Measurement, *LoadStats) {
	stats := newStats()
	out := make([]model.Measurement, 0, len(raws))
	for _, r := range raws {
		stats.RowsRead++
		if r.Lat == nil || r.Lon == nil {
			stats.drop(DropMissingCoords)
			continue
		}
		hf, ok := r.ResolvedHeatFlow()
		if !ok {
			stats.drop(DropMissingHeatFlow)
			continue
		}
		if hf <= 0 {
			stats.drop(DropNonPositiveHeatFlow)
			continue
		}
		if !validCoords(*r.Lat, *r.Lon) {
			stats.drop(DropOutOfRangeCoords)
			continue
		}
		out = append(out, model.Measurement{Lat: *r.Lat, Lon: *r.Lon, HeatFlow: hf})
	}
	stats.Kept = len(out)
	return out, stats
}

func rawMeasurements(header []string, rows [][]string, cfg config.MeasurementsConfig) ([]model.RawMeasurement, error) {
	idx := headerIndex(header)
	cols, err := requireColumns(idx, cfg.LatColumn, cfg.LonColumn)
	if err != nil {
		return nil, err
	}

	// Either heat-flow column may be absent; at least one must exist.
	corrected, hasCorrected := idx[strings.ToLower(cfg.CorrectedColumn)]
	raw, hasRaw := idx[strings.ToLower(cfg.RawColumn)]
	if !hasCorrected && !hasRaw {
		return nil, eris.Errorf("dataset: missing heat flow columns %s, %s", cfg.CorrectedColumn, cfg.RawColumn)
	}
	if !hasCorrected {
		corrected = -1
	}
	if !hasRaw {
		raw = -1
	}

	out := make([]model.RawMeasurement, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.RawMeasurement{
			Lat:       parseNumber(cell(row, cols[0])),
			Lon:       parseNumber(cell(row, cols[1])),
			Corrected: parseNumber(cell(row, corrected)),
			Raw:       parseNumber(cell(row, raw)),
		})
	}
	return out, nil
}

func readXLSXTable(path string, cfg config.MeasurementsConfig) ([]string, [][]string, error) {
	if cfg.HeaderRow < 0 {
		return nil, nil, eris.Errorf("dataset: header row %d out of range", cfg.HeaderRow)
	}
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{
		SheetName: cfg.Sheet,
		SkipRows:  cfg.HeaderRow,
		RawValues: true,
	})
	if err != nil {
		return nil, nil, eris.Wrap(err, "dataset: read measurements workbook")
	}
	if len(rows) == 0 {
		return nil, nil, eris.Errorf("dataset: header row %d out of range (sheet ends before it)", cfg.HeaderRow)
	}
	return rows[0], rows[1:], nil
}
