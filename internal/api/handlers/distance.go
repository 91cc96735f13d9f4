package handlers

import (
	"context"
	"net/http"

	"cargo-route-service/internal/api/dto"
	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/services"
)

type PointResolver interface {
	Resolve(ctx context.Context, loc domain.Location) (domain.GeoPoint, error)
}

type DistanceCalculator interface {
	Distance(ctx context.Context, a, b domain.GeoPoint) (services.LegMetrics, error)
}

// DistanceHandler answers point-to-point distance queries.
type DistanceHandler struct {
	Resolver  PointResolver
	Distances DistanceCalculator
}

func (h *DistanceHandler) Distance(w http.ResponseWriter, r *http.Request) {
	var req dto.DistanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	from, err := h.Resolver.Resolve(r.Context(), req.Origin)
	if err != nil {
		writeServiceError(w, r, "distance.resolve_origin", err)
		return
	}
	to, err := h.Resolver.Resolve(r.Context(), req.Destination)
	if err != nil {
		writeServiceError(w, r, "distance.resolve_destination", err)
		return
	}

	m, err := h.Distances.Distance(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, r, "distance", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.DistanceResponse{
		DistanceKm:      m.DistanceKm,
		DurationMinutes: m.DurationMinutes,
		Fallback:        m.Fallback,
		Geometry:        m.Geometry,
	})
}
