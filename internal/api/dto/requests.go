package dto

import (
	"time"

	"cargo-route-service/internal/domain"

	"github.com/shopspring/decimal"
)

type DistanceRequest struct {
	Origin      domain.Location `json:"origin"`
	Destination domain.Location `json:"destination"`
}

type PriceRequest struct {
	Weight     decimal.Decimal `json:"weight"`
	Volume     decimal.Decimal `json:"volume"`
	DistanceKm decimal.Decimal `json:"distance_km"`
	// Only used by the real price endpoint.
	CarrierID string `json:"carrier_id,omitempty"`
}

type RouteOptionsRequest struct {
	Origin      domain.Location `json:"origin"`
	Destination domain.Location `json:"destination"`
	Weight      decimal.Decimal `json:"weight"`
	Volume      decimal.Decimal `json:"volume"`
}

type SelectRouteRequest struct {
	ShipmentID string     `json:"shipment_id"`
	OptionID   string     `json:"option_id"`
	DepartAt   *time.Time `json:"depart_at"`
}

// Both actuals are required; a missing field is not read as zero.
type CompleteLegRequest struct {
	ActualCost            *decimal.Decimal `json:"actual_cost"`
	ActualDurationMinutes *decimal.Decimal `json:"actual_duration_minutes"`
	CompletedAt           *time.Time       `json:"completed_at"`
}
