package model

// SiteCandidate is an accepted entry of the top-sites shortlist.
type SiteCandidate struct {
	Rank       int     `json:"rank"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Score      float64 `json:"score"`
	HeatFlow   float64 `json:"hf"`
	DistanceKM float64 `json:"bd"`
}
