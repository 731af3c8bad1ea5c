package export

import (
	"github.com/sells-group/geothermal-cli/internal/config"
	"github.com/sells-group/geothermal-cli/internal/model"
)

// RunFiles encodes the full output set of a run: heat map, top sites, boundary
// paths and, when enabled, the GeoJSON rendition of the paths.
func RunFiles(cfg config.OutputConfig, scored []model.Measurement, sites []model.SiteCandidate, paths []model.BoundaryPath) ([]File, error) {
	heatmap, err := JSONFile(cfg.HeatmapFile, HeatmapRecords(scored))
	if err != nil {
		return nil, err
	}
	top, err := JSONFile(cfg.SitesFile, SiteRecords(sites))
	if err != nil {
		return nil, err
	}
	files := []File{heatmap, top}

	pathFiles, err := PathFiles(cfg, paths)
	if err != nil {
		return nil, err
	}
	return append(files, pathFiles...), nil
}

// PathFiles encodes only the boundary path outputs.
func PathFiles(cfg config.OutputConfig, paths []model.BoundaryPath) ([]File, error) {
	pf, err := JSONFile(cfg.PathsFile, PathRecords(paths))
	if err != nil {
		return nil, err
	}
	files := []File{pf}

	if cfg.GeoJSON {
		data, err := PathsGeoJSON(paths)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Name: cfg.GeoJSONFile, Data: data})
	}
	return files, nil
}

// Names lists the output file names cfg can produce, in write order.
func Names(cfg config.OutputConfig) []string {
	names := []string{cfg.HeatmapFile, cfg.SitesFile, cfg.PathsFile}
	if cfg.GeoJSON {
		names = append(names, cfg.GeoJSONFile)
	}
	return names
}
