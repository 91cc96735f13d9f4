package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"cargo-route-service/internal/api/dto"
	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/services"

	"github.com/shopspring/decimal"
)

type PriceCalculator interface {
	EstimatePrice(ctx context.Context, cargo domain.Cargo, distanceKm decimal.Decimal) (services.PriceQuote, error)
	RealPrice(ctx context.Context, cargo domain.Cargo, distanceKm decimal.Decimal, carrierID string) (services.PriceQuote, error)
}

type PriceHandler struct {
	Prices PriceCalculator
}

func priceInput(req dto.PriceRequest) (domain.Cargo, error) {
	if req.DistanceKm.IsNegative() {
		return domain.Cargo{}, fmt.Errorf("%w: distance_km must not be negative", domain.ErrInvalidCargo)
	}
	cargo := domain.Cargo{Weight: req.Weight, Volume: req.Volume}
	return cargo, cargo.Validate()
}

// Estimate prices cargo from the active tariff alone; no fuel cost is added.
func (h *PriceHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req dto.PriceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cargo, err := priceInput(req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	q, err := h.Prices.EstimatePrice(r.Context(), cargo, req.DistanceKm)
	if err != nil {
		writeServiceError(w, r, "prices.estimate", err)
		return
	}
	writeJSON(w, r, http.StatusOK, q)
}

// Real prices cargo with the named carrier's fuel rate.
func (h *PriceHandler) Real(w http.ResponseWriter, r *http.Request) {
	var req dto.PriceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.CarrierID) == "" {
		writeError(w, r, http.StatusBadRequest, "carrier_id is required")
		return
	}
	cargo, err := priceInput(req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	q, err := h.Prices.RealPrice(r.Context(), cargo, req.DistanceKm, req.CarrierID)
	if err != nil {
		writeServiceError(w, r, "prices.real", err)
		return
	}
	writeJSON(w, r, http.StatusOK, q)
}
