package services

import (
	"math"

	"cargo-route-service/internal/domain"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points.
func HaversineKm(a, b domain.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	// Clamp rounding noise for antipodal points.
	if h > 1 {
		h = 1
	}

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
