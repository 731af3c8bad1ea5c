package geo

// Boundary proximity bands.
const (
	BandOnBoundary = "on_boundary"
	BandNear       = "near"
	BandModerate   = "moderate"
	BandDistal     = "distal"
)

// Band thresholds as multiples of the proximity decay length.
const (
	onBoundaryFactor = 1.0 / 6 // 50 km at the default 300 km decay length
	nearFactor       = 1.0     // proximity >= e^-1
	moderateFactor   = 3.0     // proximity >= e^-3
)

// ClassifyDistance returns the proximity band for a distance to the nearest
// plate boundary, scaled by the decay length sigmaKM.
// Rules:
//   - on_boundary: distance <= sigma/6
//   - near: distance <= sigma
//   - moderate: distance <= 3*sigma
//   - distal: anything further
func ClassifyDistance(distanceKM, sigmaKM float64) string {
	switch {
	case distanceKM <= sigmaKM*onBoundaryFactor:
		return BandOnBoundary
	case distanceKM <= sigmaKM*nearFactor:
		return BandNear
	case distanceKM <= sigmaKM*moderateFactor:
		return BandModerate
	default:
		return BandDistal
	}
}

// Bands lists every band in increasing distance order.
func Bands() []string {
	return []string{BandOnBoundary, BandNear, BandModerate, BandDistal}
}
