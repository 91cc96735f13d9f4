package distance

import (
	"context"
	"fmt"
	"net/http"

	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/platform/obs"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Geocode resolves one address with /geocode/search, keeping the best match.
func (o *ORSClient) Geocode(ctx context.Context, address string) (_ domain.GeoPoint, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	req, err := o.newRequest(ctx, http.MethodGet, o.baseURL+"/geocode/search", nil)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("get geocode request: %w", err)
	}

	q := req.URL.Query()
	q.Set("text", address)
	q.Set("size", "1")
	if o.country != "" {
		q.Set("boundary.country", o.country)
	}
	req.URL.RawQuery = q.Encode()

	body, err := o.do(req)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: execute request: %v", domain.ErrGeocodingFailure, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%w: decode geocode response: %v", domain.ErrGeocodingFailure, err)
	}

	if len(fc.Features) == 0 {
		return domain.GeoPoint{}, fmt.Errorf("%w: no geocode results for %q", domain.ErrGeocodingFailure, address)
	}

	pt, ok := fc.Features[0].Geometry.(orb.Point)
	if !ok {
		return domain.GeoPoint{}, fmt.Errorf("%w: invalid coordinate format for %q", domain.ErrGeocodingFailure, address)
	}

	return domain.GeoPointFromOrb(pt), nil
}
