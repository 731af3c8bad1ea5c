// Package geo provides great-circle distance, nearest-boundary lookup and plate
// boundary path construction.
package geo

import "math"

// EarthRadiusKM is the spherical Earth radius used for every distance in this
// package.
const EarthRadiusKM = 6371.0

const degToRad = math.Pi / 180

// HaversineKM returns the great-circle distance in kilometers between two
// points given in decimal degrees.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := phi2 - phi1
	dLambda := (lon2 - lon1) * degToRad

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda

	// Rounding can push a past 1 for antipodal points.
	a = math.Min(1, math.Max(0, a))
	return 2 * EarthRadiusKM * math.Asin(math.Sqrt(a))
}

// vec3 is a point on the unit sphere in Earth-centered Cartesian coordinates.
type vec3 [3]float64

func toUnit(lat, lon float64) vec3 {
	phi := lat * degToRad
	lambda := lon * degToRad
	cosPhi := math.Cos(phi)
	return vec3{cosPhi * math.Cos(lambda), cosPhi * math.Sin(lambda), math.Sin(phi)}
}

func chord2(a, b vec3) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return dx*dx + dy*dy + dz*dz
}
