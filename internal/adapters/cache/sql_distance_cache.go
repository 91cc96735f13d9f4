package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/platform/obs"
	"cargo-route-service/internal/ports"

	"github.com/paulmach/orb"
)

// SQLDistanceCache is a SQL-backed cache for provider routing results,
// keyed by the rounded coordinates of both ends.
type SQLDistanceCache struct {
	DB *sql.DB
}

func NewSQLDistanceCache(db *sql.DB) *SQLDistanceCache {
	return &SQLDistanceCache{DB: db}
}

func (s *SQLDistanceCache) Get(
	ctx context.Context,
	origin, destination domain.GeoPoint,
) (_ ports.DistanceResult, found bool, err error) {
	defer obs.Time(ctx, "distance.cache.Get")(&err)

	if s.DB == nil {
		return ports.DistanceResult{}, false, errors.New("distance cache: db is nil")
	}

	var (
		r    ports.DistanceResult
		geom []byte
	)
	err = s.DB.QueryRowContext(ctx, `
	SELECT distance_meters, duration_seconds, geometry
	FROM distance_cache
	WHERE origin = $1
		AND destination = $2;
	`, origin.Key(), destination.Key()).Scan(&r.DistanceMeters, &r.DurationSeconds, &geom)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.DistanceResult{}, false, nil
	}
	if err != nil {
		return ports.DistanceResult{}, false, fmt.Errorf("get distance cache: query distance_cache table: %w", err)
	}

	if len(geom) > 0 {
		var ls orb.LineString
		if err := json.Unmarshal(geom, &ls); err != nil {
			return ports.DistanceResult{}, false, fmt.Errorf("get distance cache: decode geometry: %w", err)
		}
		r.Geometry = ls
	}

	return r, true, nil
}

func (s *SQLDistanceCache) Put(
	ctx context.Context,
	origin, destination domain.GeoPoint,
	r ports.DistanceResult,
) error {
	if s.DB == nil {
		return errors.New("distance cache: db is nil")
	}

	var geom any
	if len(r.Geometry) > 0 {
		b, err := json.Marshal(r.Geometry)
		if err != nil {
			return fmt.Errorf("insert distance cache: encode geometry: %w", err)
		}
		geom = string(b)
	}

	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO distance_cache (origin, destination, distance_meters, duration_seconds, geometry)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (origin, destination) DO UPDATE
	SET distance_meters = EXCLUDED.distance_meters,
		duration_seconds = EXCLUDED.duration_seconds,
		geometry = EXCLUDED.geometry;
	`, origin.Key(), destination.Key(), r.DistanceMeters, r.DurationSeconds, geom)
	if err != nil {
		return fmt.Errorf("insert distance cache %s -> %s: %w", origin.Key(), destination.Key(), err)
	}

	return nil
}
