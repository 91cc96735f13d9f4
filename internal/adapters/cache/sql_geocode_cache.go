package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/platform/obs"
)

// SQLGeocodeCache is a SQL-backed cache mapping normalized addresses to points.
type SQLGeocodeCache struct {
	DB *sql.DB
}

func NewSQLGeocodeCache(db *sql.DB) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: db}
}

// Get returns found=false when the address was never resolved.
func (s *SQLGeocodeCache) Get(ctx context.Context, address string) (_ domain.GeoPoint, found bool, err error) {
	defer obs.Time(ctx, "geocode.cache.Get")(&err)

	if s.DB == nil {
		return domain.GeoPoint{}, false, errors.New("geocode cache: db is nil")
	}

	address = strings.TrimSpace(address)
	if address == "" {
		return domain.GeoPoint{}, false, nil
	}

	var p domain.GeoPoint
	err = s.DB.QueryRowContext(ctx, `
	SELECT lat, lon
	FROM geocode_cache
	WHERE address = $1;
	`, address).Scan(&p.Lat, &p.Lon)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GeoPoint{}, false, nil
	}
	if err != nil {
		return domain.GeoPoint{}, false, fmt.Errorf("get geocode cache: query geocode_cache table: %w", err)
	}

	return p, true, nil
}

// Put stores or refreshes an address mapping.
func (s *SQLGeocodeCache) Put(ctx context.Context, address string, p domain.GeoPoint) error {
	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}

	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("insert geocode cache: empty address key")
	}

	_, err := s.DB.ExecContext(ctx, `
	INSERT INTO geocode_cache (address, lat, lon)
	VALUES ($1, $2, $3)
	ON CONFLICT (address) DO UPDATE
	SET lat = EXCLUDED.lat,
		lon = EXCLUDED.lon;
	`, address, p.Lat, p.Lon)
	if err != nil {
		return fmt.Errorf("insert geocode cache address=%q: %w", address, err)
	}

	return nil
}
