package export

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/geothermal-cli/internal/geo"
	"github.com/sells-group/geothermal-cli/internal/model"
)

// PathsGeoJSON encodes boundary paths as a FeatureCollection of LineStrings,
// one feature per plate with a "plate" property. Vertices are rounded like
// the JSON paths file.
func PathsGeoJSON(paths []model.BoundaryPath) ([]byte, error) {
	rounded := PathRecords(paths)
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(rounded))}
	for _, p := range rounded {
		if len(p.Points) == 0 {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         p.PlateID,
			Geometry:   geo.PathLineString(p),
			Properties: map[string]any{"plate": p.PlateID},
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return nil, eris.Wrap(err, "export: encode geojson")
	}
	return data, nil
}
