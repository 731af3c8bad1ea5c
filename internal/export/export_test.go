package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geothermal-cli/internal/config"
	"github.com/sells-group/geothermal-cli/internal/model"
)

func testOutputConfig(dir string) config.OutputConfig {
	return config.OutputConfig{
		Dir:         dir,
		HeatmapFile: "geothermal_data.json",
		SitesFile:   "top_sites.json",
		PathsFile:   "plate_boundaries.json",
		GeoJSONFile: "plate_boundaries.geojson",
		GeoJSON:     true,
	}
}

func testScored() []model.Measurement {
	return []model.Measurement{
		{Lat: 10.123456, Lon: -20.98767, HeatFlow: 85.26, DistanceKM: 123.44, Score: 0.51234},
		{Lat: -45, Lon: 170.5, HeatFlow: 60, DistanceKM: 0, Score: 1},
	}
}

func testSites() []model.SiteCandidate {
	return []model.SiteCandidate{
		{Rank: 1, Lat: -45, Lon: 170.5, Score: 1, HeatFlow: 60, DistanceKM: 0},
		{Rank: 2, Lat: 10.123456, Lon: -20.98767, Score: 0.5123, HeatFlow: 85.26, DistanceKM: 123.44},
	}
}

func testPaths() []model.BoundaryPath {
	return []model.BoundaryPath{
		{PlateID: "AF", Points: []model.LonLat{{10.000049, 1.23456}, {11, 2}}},
		{PlateID: "EU", Points: []model.LonLat{{-3.5, 40}}},
	}
}

func TestHeatmapRecords_Rounding(t *testing.T) {
	data, err := json.Marshal(HeatmapRecords(testScored()[:1]))
	require.NoError(t, err)
	assert.Equal(t, `[{"coordinates":[-20.9877,10.1235],"score":0.5123,"hf":85.3,"bd":123.4}]`, string(data))
}

func TestHeatmapRecords_KeepsInputOrder(t *testing.T) {
	recs := HeatmapRecords(testScored())
	require.Len(t, recs, 2)
	assert.Equal(t, model.LonLat{170.5, -45}, recs[1].Coordinates)
	assert.Equal(t, 1.0, recs[1].Score)
}

func TestSiteRecords(t *testing.T) {
	data, err := json.Marshal(SiteRecords(testSites()))
	require.NoError(t, err)
	assert.Equal(t,
		`[{"rank":1,"lat":-45,"lon":170.5,"score":1,"hf":60,"bd":0},`+
			`{"rank":2,"lat":10.1235,"lon":-20.9877,"score":0.5123,"hf":85.3,"bd":123.4}]`,
		string(data))
}

func TestSiteRecords_DoesNotMutateInput(t *testing.T) {
	in := testSites()
	_ = SiteRecords(in)
	assert.Equal(t, 10.123456, in[1].Lat)
}

func TestPathRecords(t *testing.T) {
	data, err := json.Marshal(PathRecords(testPaths()))
	require.NoError(t, err)
	assert.Equal(t,
		`[{"plate":"AF","path":[[10,1.2346],[11,2]]},{"plate":"EU","path":[[-3.5,40]]}]`,
		string(data))
}

func TestPathsGeoJSON(t *testing.T) {
	data, err := PathsGeoJSON(testPaths())
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Type       string         `json:"type"`
			Properties map[string]any `json:"properties"`
			Geometry   struct {
				Type        string      `json:"type"`
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))

	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "AF", fc.Features[0].Properties["plate"])
	assert.Equal(t, "LineString", fc.Features[0].Geometry.Type)
	assert.Equal(t, [][]float64{{10, 1.2346}, {11, 2}}, fc.Features[0].Geometry.Coordinates)
	// Single-vertex paths are emitted as degenerate lines.
	assert.Len(t, fc.Features[1].Geometry.Coordinates, 2)
}

func TestPathsGeoJSON_SkipsEmptyPaths(t *testing.T) {
	data, err := PathsGeoJSON([]model.BoundaryPath{{PlateID: "X"}})
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"X"`)
}

func TestRunFiles(t *testing.T) {
	cfg := testOutputConfig(t.TempDir())
	files, err := RunFiles(cfg, testScored(), testSites(), testPaths())
	require.NoError(t, err)

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	assert.Equal(t, Names(cfg), names)
}

func TestRunFiles_WithoutGeoJSON(t *testing.T) {
	cfg := testOutputConfig(t.TempDir())
	cfg.GeoJSON = false
	files, err := RunFiles(cfg, testScored(), testSites(), testPaths())
	require.NoError(t, err)
	assert.Len(t, files, 3)
	assert.Equal(t, []string{"geothermal_data.json", "top_sites.json", "plate_boundaries.json"}, Names(cfg))
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "public")
	cfg := testOutputConfig(dir)
	files, err := RunFiles(cfg, testScored(), testSites(), testPaths())
	require.NoError(t, err)

	paths, err := WriteFiles(dir, files)
	require.NoError(t, err)
	require.Len(t, paths, 4)

	for i, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, files[i].Data, data)
	}

	// No staging leftovers.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestWriteFiles_Idempotent(t *testing.T) {
	dir := t.TempDir()
	cfg := testOutputConfig(dir)

	write := func() map[string][]byte {
		files, err := RunFiles(cfg, testScored(), testSites(), testPaths())
		require.NoError(t, err)
		paths, err := WriteFiles(dir, files)
		require.NoError(t, err)
		out := make(map[string][]byte, len(paths))
		for _, p := range paths {
			data, err := os.ReadFile(p)
			require.NoError(t, err)
			out[filepath.Base(p)] = data
		}
		return out
	}

	assert.Equal(t, write(), write())
}

func TestWriteFiles_InvalidNameLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteFiles(dir, []File{
		{Name: "ok.json", Data: []byte("[]")},
		{Name: "../escape.json", Data: []byte("[]")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output name")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteFiles_ReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "top_sites.json")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644))

	_, err := WriteFiles(dir, []File{{Name: "top_sites.json", Data: []byte("[]")}})
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
