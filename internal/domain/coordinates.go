package domain

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// Immutable geographic point (WGS 84, decimal degrees).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks latitude and longitude bounds.
func (p GeoPoint) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90,90]", ErrInvalidCoordinates, p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180,180]", ErrInvalidCoordinates, p.Lon)
	}
	return nil
}

// Return coordinates as [lon, lat] for external API compatibility.
func (p GeoPoint) CoordsToList() []float64 { return []float64{p.Lon, p.Lat} }

// Point converts to an orb point (x=lon, y=lat).
func (p GeoPoint) Point() orb.Point { return orb.Point{p.Lon, p.Lat} }

// Key renders a stable cache key rounded to ~10cm.
func (p GeoPoint) Key() string { return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon) }

func GeoPointFromOrb(pt orb.Point) GeoPoint { return GeoPoint{Lat: pt.Lat(), Lon: pt.Lon()} }

// Location is what callers hand in: free text or an explicit coordinate pair.
type Location struct {
	Address string    `json:"address,omitempty"`
	Point   *GeoPoint `json:"point,omitempty"`
}

func (l Location) IsZero() bool {
	return l.Point == nil && strings.TrimSpace(l.Address) == ""
}

func (l Location) String() string {
	if l.Point != nil {
		return l.Point.Key()
	}
	return strings.TrimSpace(l.Address)
}
