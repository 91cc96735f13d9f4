package dto

import (
	"cargo-route-service/internal/domain"

	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"
)

type DistanceResponse struct {
	DistanceKm      decimal.Decimal `json:"distance_km"`
	DurationMinutes decimal.Decimal `json:"duration_minutes"`
	Fallback        bool            `json:"fallback"`
	Geometry        orb.LineString  `json:"geometry"`
}

type RouteOptionsResponse struct {
	Options []domain.RouteOption `json:"options"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
