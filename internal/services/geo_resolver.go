package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/platform/logger"
	"cargo-route-service/internal/platform/obs"
	"cargo-route-service/internal/ports"

	"go.uber.org/zap"
)

// GeoResolver turns a Location into a validated GeoPoint.
// Free-text addresses cost at most one provider call per resolution.
type GeoResolver struct {
	geocoder ports.Geocoder
	cache    ports.GeocodeCache
}

// cache may be nil.
func NewGeoResolver(geocoder ports.Geocoder, cache ports.GeocodeCache) *GeoResolver {
	return &GeoResolver{geocoder: geocoder, cache: cache}
}

// normalize ensures consistent cache keys by collapsing whitespace.
func normalizeAddress(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (r *GeoResolver) Resolve(ctx context.Context, loc domain.Location) (_ domain.GeoPoint, err error) {
	defer obs.Time(ctx, "geo.Resolve")(&err)

	if loc.Point != nil {
		if err := loc.Point.Validate(); err != nil {
			return domain.GeoPoint{}, err
		}
		return *loc.Point, nil
	}

	addr := normalizeAddress(loc.Address)
	if addr == "" {
		return domain.GeoPoint{}, fmt.Errorf("%w: empty address", domain.ErrGeocodingFailure)
	}

	if r.cache != nil {
		p, ok, err := r.cache.Get(ctx, addr)
		if err != nil {
			logger.Get().Warn("geocode cache read failed", zap.String("address", addr), zap.Error(err))
		} else if ok {
			return p, nil
		}
	}

	if r.geocoder == nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: no geocoding provider configured", domain.ErrGeocodingFailure)
	}

	p, err := r.geocoder.Geocode(ctx, addr)
	if err != nil {
		if errors.Is(err, domain.ErrGeocodingFailure) {
			return domain.GeoPoint{}, err
		}
		return domain.GeoPoint{}, fmt.Errorf("%w: %q: %v", domain.ErrGeocodingFailure, addr, err)
	}
	if err := p.Validate(); err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: provider returned %v", domain.ErrGeocodingFailure, err)
	}

	if r.cache != nil {
		if err := r.cache.Put(ctx, addr, p); err != nil {
			logger.Get().Warn("geocode cache write failed", zap.String("address", addr), zap.Error(err))
		}
	}

	return p, nil
}
