package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/platform/obs"
	"cargo-route-service/internal/ports"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var errMalformedRoute = errors.New("malformed directions response")

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

// Route fetches road distance, duration and path between two points from
// /v2/directions/{profile}/geojson.
func (o *ORSClient) Route(ctx context.Context, origin, destination domain.GeoPoint) (_ ports.DistanceResult, err error) {
	defer obs.Time(ctx, "ors.Route")(&err)

	payload, err := json.Marshal(directionsRequest{
		Coordinates: [][]float64{origin.CoordsToList(), destination.CoordsToList()},
	})
	if err != nil {
		return ports.DistanceResult{}, fmt.Errorf("marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/directions/%s/geojson", o.baseURL, o.profile)
	req, err := o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return ports.DistanceResult{}, fmt.Errorf("post directions request: %w", err)
	}

	body, err := o.do(req)
	if err != nil {
		return ports.DistanceResult{}, fmt.Errorf("execute request: %w", err)
	}

	return parseDirections(body)
}

func parseDirections(body []byte) (ports.DistanceResult, error) {
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return ports.DistanceResult{}, fmt.Errorf("%w: %v", errMalformedRoute, err)
	}
	if len(fc.Features) == 0 {
		return ports.DistanceResult{}, fmt.Errorf("%w: no features", errMalformedRoute)
	}

	f := fc.Features[0]
	summary, ok := f.Properties["summary"].(map[string]interface{})
	if !ok {
		return ports.DistanceResult{}, fmt.Errorf("%w: missing summary", errMalformedRoute)
	}

	meters, okD := summary["distance"].(float64)
	seconds, okT := summary["duration"].(float64)
	if !okD || !okT || meters < 0 || seconds < 0 || math.IsNaN(meters) || math.IsNaN(seconds) {
		return ports.DistanceResult{}, fmt.Errorf("%w: bad summary %v", errMalformedRoute, summary)
	}

	r := ports.DistanceResult{
		DistanceMeters:  int(math.Round(meters)),
		DurationSeconds: int(math.Round(seconds)),
	}
	if ls, ok := f.Geometry.(orb.LineString); ok {
		r.Geometry = ls
	}

	return r, nil
}
