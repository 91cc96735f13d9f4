package ports

import (
	"context"

	"cargo-route-service/internal/domain"

	"github.com/paulmach/orb"
)

// Road distance, travel duration and optional path between two points.
type DistanceResult struct {
	DistanceMeters  int
	DurationSeconds int
	Geometry        orb.LineString
}

// Contract for a networked road-routing provider.
type RoutingProvider interface {
	// Return road distance and duration between two points.
	Route(ctx context.Context, origin, destination domain.GeoPoint) (DistanceResult, error)
}

// Persistent cache of provider routing results keyed by point pair.
type DistanceCache interface {
	Get(ctx context.Context, origin, destination domain.GeoPoint) (DistanceResult, bool, error)
	Put(ctx context.Context, origin, destination domain.GeoPoint, r DistanceResult) error
}
