package model

// BoundaryPoint is one vertex of a tectonic plate boundary trace.
type BoundaryPoint struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	PlateID string  `json:"plate"`
}

// LonLat is a coordinate pair in drawing order (x = longitude, y = latitude).
type LonLat [2]float64

// BoundaryPath is the ordered polyline for one plate identifier. Point order is
// the row order of the source table.
type BoundaryPath struct {
	PlateID string   `json:"plate"`
	Points  []LonLat `json:"path"`
}
