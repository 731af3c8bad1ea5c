package scorer

import (
	"math"
	"sort"
)

// ScoreDecimals is the number of decimal places kept in composite scores.
const ScoreDecimals = 4

// Quantile returns the q-th quantile of values using linear interpolation
// between the two nearest order statistics. values is not modified.
// Returns NaN for an empty slice.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	h := float64(len(sorted)-1) * q
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// NormalizeHeatFlow clips hf to capValue and scales it into [0, 1].
func NormalizeHeatFlow(hf, capValue float64) float64 {
	return math.Min(hf, capValue) / capValue
}

// Proximity converts a boundary distance into an exponential-decay score:
// 1 at the boundary, e^-1 at sigmaKM, e^-3 at three times sigmaKM.
func Proximity(distanceKM, sigmaKM float64) float64 {
	return math.Exp(-distanceKM / sigmaKM)
}

// Composite blends a heat-flow score and a proximity score with the given
// heat weight and rounds the result to ScoreDecimals places.
func Composite(hfScore, proximity, heatWeight float64) float64 {
	// 1-0.7 is 0.30000000000000004; snap the complement to the decimal weight.
	complement := Round(1-heatWeight, 12)
	return Round(heatWeight*hfScore+complement*proximity, ScoreDecimals)
}

// Round rounds x to the given number of decimal places, resolving ties to the
// even neighbour of the scaled value.
func Round(x float64, places int) float64 {
	p := math.Pow10(places)
	return math.RoundToEven(x*p) / p
}
