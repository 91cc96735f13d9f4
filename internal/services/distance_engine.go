package services

import (
	"context"
	"errors"
	"fmt"

	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/platform/logger"
	"cargo-route-service/internal/platform/obs"
	"cargo-route-service/internal/ports"

	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LegMetrics is the distance engine's answer for one point pair.
type LegMetrics struct {
	DistanceKm      decimal.Decimal
	DurationMinutes decimal.Decimal
	Geometry        orb.LineString
	// Fallback is true when the great-circle estimate was used.
	Fallback bool
}

// DistanceEngine prefers the road-routing provider and falls back to a
// haversine estimate so pricing is never blocked by a provider outage.
type DistanceEngine struct {
	provider        ports.RoutingProvider
	cache           ports.DistanceCache
	averageSpeedKmh decimal.Decimal
}

// provider and cache may be nil; without a provider every answer is the fallback.
func NewDistanceEngine(provider ports.RoutingProvider, cache ports.DistanceCache, averageSpeedKmh float64) (*DistanceEngine, error) {
	if averageSpeedKmh <= 0 {
		return nil, errors.New("distance engine: average speed must be positive")
	}
	return &DistanceEngine{
		provider:        provider,
		cache:           cache,
		averageSpeedKmh: decimal.NewFromFloat(averageSpeedKmh),
	}, nil
}

var (
	metersPerKm    = decimal.NewFromInt(1000)
	secondsPerMin  = decimal.NewFromInt(60)
	distancePlaces = int32(3)
	durationPlaces = int32(2)
)

// Distance returns road metrics between a and b. It only fails when ctx
// is done or a point is out of bounds.
func (e *DistanceEngine) Distance(ctx context.Context, a, b domain.GeoPoint) (_ LegMetrics, err error) {
	defer obs.Time(ctx, "distance.Distance")(&err)

	if err := a.Validate(); err != nil {
		return LegMetrics{}, err
	}
	if err := b.Validate(); err != nil {
		return LegMetrics{}, err
	}
	if err := ctx.Err(); err != nil {
		return LegMetrics{}, err
	}

	if a == b {
		return LegMetrics{
			DistanceKm:      decimal.Zero,
			DurationMinutes: decimal.Zero,
			Geometry:        orb.LineString{a.Point()},
		}, nil
	}

	if e.cache != nil {
		r, ok, err := e.cache.Get(ctx, a, b)
		if err != nil {
			logger.Get().Warn("distance cache read failed", zap.Error(err))
		} else if ok {
			return e.fromResult(r, a, b), nil
		}
	}

	if e.provider != nil {
		r, perr := e.provider.Route(ctx, a, b)
		if perr == nil {
			perr = checkResult(r)
		}
		if perr == nil {
			if e.cache != nil {
				if err := e.cache.Put(ctx, a, b, r); err != nil {
					logger.Get().Warn("distance cache write failed", zap.Error(err))
				}
			}
			return e.fromResult(r, a, b), nil
		}

		// A cancelled caller gets its error, not an estimate.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return LegMetrics{}, ctxErr
		}
		logger.Get().Warn("routing provider failed, using haversine fallback",
			zap.String("origin", a.Key()),
			zap.String("destination", b.Key()),
			zap.Error(perr),
		)
	}

	return e.Fallback(a, b), nil
}

// Fallback is the deterministic great-circle estimate. It never fails.
func (e *DistanceEngine) Fallback(a, b domain.GeoPoint) LegMetrics {
	km := decimal.NewFromFloat(HaversineKm(a, b)).Round(distancePlaces)
	minutes := km.Div(e.averageSpeedKmh).Mul(secondsPerMin).Round(durationPlaces)

	return LegMetrics{
		DistanceKm:      km,
		DurationMinutes: minutes,
		Geometry:        orb.LineString{a.Point(), b.Point()},
		Fallback:        true,
	}
}

func checkResult(r ports.DistanceResult) error {
	if r.DistanceMeters < 0 || r.DurationSeconds < 0 {
		return fmt.Errorf("malformed routing result: distance=%d duration=%d", r.DistanceMeters, r.DurationSeconds)
	}
	return nil
}

func (e *DistanceEngine) fromResult(r ports.DistanceResult, a, b domain.GeoPoint) LegMetrics {
	geom := r.Geometry
	if len(geom) < 2 {
		geom = orb.LineString{a.Point(), b.Point()}
	}

	return LegMetrics{
		DistanceKm:      decimal.NewFromInt(int64(r.DistanceMeters)).Div(metersPerKm).Round(distancePlaces),
		DurationMinutes: decimal.NewFromInt(int64(r.DurationSeconds)).Div(secondsPerMin).Round(durationPlaces),
		Geometry:        geom,
	}
}
