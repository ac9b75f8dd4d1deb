package utils

import "math"

const earthRadiusKm = 6371.0

func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLon := degreesToRadians(lon2 - lon1)

	lat1R := degreesToRadians(lat1)
	lat2R := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1R)*math.Cos(lat2R)
	// rounding can push a just past 1 for antipodal points
	a = math.Max(0, math.Min(1, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return HaversineKm(lat1, lon1, lat2, lon2) * 1000
}

func degreesToRadians(d float64) float64 {
	return d * math.Pi / 180
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// FallbackMinutesPerKm converts a geodesic distance into a drive-time
// estimate (40 km/h) when no routing engine answer is available.
const FallbackMinutesPerKm = 1.5

func EstimateTravelMinutes(km float64) float64 {
	return km * FallbackMinutesPerKm
}
