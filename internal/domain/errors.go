package domain

import "errors"

var (
	// ErrGeocodingFailure is returned when an address cannot be resolved to a point.
	ErrGeocodingFailure = errors.New("geocoding failure")
	// ErrInvalidCoordinates is returned for latitude/longitude outside WGS 84 bounds.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrNoApplicableTariffBand is returned when no band of the tariff covers the cargo.
	ErrNoApplicableTariffBand = errors.New("no applicable tariff band")
	// ErrNoRouteFound is returned when every candidate chain failed distance resolution.
	ErrNoRouteFound = errors.New("no route found")
	// ErrNoCarrierAvailable is returned when a leg cannot get a carrier.
	ErrNoCarrierAvailable = errors.New("no carrier available")
	// ErrInvalidTransition is returned for leg state machine misuse.
	ErrInvalidTransition = errors.New("invalid leg state transition")
	// ErrCascadeNotificationFailure marks a failed shipment-completion notification.
	// It is logged and retried out-of-band, never returned from a leg transition.
	ErrCascadeNotificationFailure = errors.New("cascade notification failure")

	ErrNotFound       = errors.New("not found")
	ErrOptionNotFound = errors.New("route option not found or expired")
	ErrRouteExists    = errors.New("shipment already has a route")
	ErrInvalidCargo   = errors.New("invalid cargo")
	ErrInvalidActuals = errors.New("invalid leg actuals")
)
