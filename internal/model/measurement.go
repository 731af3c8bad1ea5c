package model

// Measurement is a single surface heat-flow observation.
//
// Lat, Lon and HeatFlow are populated by the loader. The remaining fields are
// filled in by the scorer, which always returns a new slice.
type Measurement struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	HeatFlow float64 `json:"heat_flow"`

	HFScore    float64 `json:"hf_score"`
	DistanceKM float64 `json:"distance_to_boundary_km"`
	Proximity  float64 `json:"proximity_score"`
	Score      float64 `json:"composite_score"`
}

// RawMeasurement is a measurement row before heat-flow resolution. Nil pointers
// mark absent values.
type RawMeasurement struct {
	Lat       *float64
	Lon       *float64
	Corrected *float64
	Raw       *float64
}

// ResolvedHeatFlow returns the corrected heat flow when present and the raw
// value otherwise. ok is false when neither is present.
func (r RawMeasurement) ResolvedHeatFlow() (hf float64, ok bool) {
	if r.Corrected != nil {
		return *r.Corrected, true
	}
	if r.Raw != nil {
		return *r.Raw, true
	}
	return 0, false
}
