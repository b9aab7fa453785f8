package parking

import "math"

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371000.0

// HaversineMeters returns the great-circle distance between a and b.
func HaversineMeters(a, b Coordinate) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// WalkingMinutes converts a distance to minutes at speedKmh.
func WalkingMinutes(distanceMeters, speedKmh float64) float64 {
	return distanceMeters / 1000 / speedKmh * 60
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
