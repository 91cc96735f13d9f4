package ports

import (
	"context"

	"cargo-route-service/internal/domain"
)

// Contract for a free-text geocoding provider.
type Geocoder interface {
	// Return the best match for an address. An empty result set is an error.
	Geocode(ctx context.Context, address string) (domain.GeoPoint, error)
}

// Persistent cache mapping normalized addresses to points.
type GeocodeCache interface {
	Get(ctx context.Context, address string) (domain.GeoPoint, bool, error)
	Put(ctx context.Context, address string, p domain.GeoPoint) error
}
