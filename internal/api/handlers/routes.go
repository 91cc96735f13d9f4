package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"cargo-route-service/internal/api/dto"
	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/services"

	"github.com/go-chi/chi/v5"
)

type OptionGenerator interface {
	Generate(ctx context.Context, req services.OptionRequest) ([]domain.RouteOption, error)
}

type OptionSelector interface {
	SelectOption(ctx context.Context, shipmentID, optionID string, departAt time.Time) (*domain.Route, error)
}

type RouteReader interface {
	GetRoute(ctx context.Context, id string) (*domain.Route, error)
}

// RouteHandler covers option synthesis, selection and route lookup.
type RouteHandler struct {
	Options  OptionGenerator
	Selector OptionSelector
	Routes   RouteReader
}

// Plan returns ranked route options. Nothing is persisted besides the
// short-lived options themselves.
func (h *RouteHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req dto.RouteOptionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	options, err := h.Options.Generate(r.Context(), services.OptionRequest{
		Origin:      req.Origin,
		Destination: req.Destination,
		Cargo:       domain.Cargo{Weight: req.Weight, Volume: req.Volume},
	})
	if err != nil {
		writeServiceError(w, r, "route_options", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.RouteOptionsResponse{Options: options})
}

// Select materializes a previously generated option into a route with
// carriers assigned to each leg.
func (h *RouteHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req dto.SelectRouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ShipmentID) == "" || strings.TrimSpace(req.OptionID) == "" {
		writeError(w, r, http.StatusBadRequest, "shipment_id and option_id are required")
		return
	}

	var departAt time.Time
	if req.DepartAt != nil {
		departAt = *req.DepartAt
	}

	route, err := h.Selector.SelectOption(r.Context(), req.ShipmentID, req.OptionID, departAt)
	if err != nil {
		writeServiceError(w, r, "routes.select", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, route)
}

func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	route, err := h.Routes.GetRoute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "routes.get", err)
		return
	}
	writeJSON(w, r, http.StatusOK, route)
}
