package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cargo-route-service/internal/api/dto"
	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/services"

	"github.com/go-chi/chi/v5"
)

type LegTransitions interface {
	Start(ctx context.Context, legID string) (services.LegTransitionResult, error)
	Cancel(ctx context.Context, legID string) (services.LegTransitionResult, error)
	Complete(ctx context.Context, req services.CompleteLegRequest) (services.LegTransitionResult, error)
}

type LegReader interface {
	GetLeg(ctx context.Context, id string) (*domain.Leg, error)
}

type LegHandler struct {
	Lifecycle LegTransitions
	Legs      LegReader
}

func (h *LegHandler) Get(w http.ResponseWriter, r *http.Request) {
	leg, err := h.Legs.GetLeg(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "legs.get", err)
		return
	}
	writeJSON(w, r, http.StatusOK, leg)
}

func (h *LegHandler) Start(w http.ResponseWriter, r *http.Request) {
	res, err := h.Lifecycle.Start(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "legs.start", err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *LegHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	res, err := h.Lifecycle.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, "legs.cancel", err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// Complete records actuals. The response reports whether this completed
// the shipment and whether the owning service was told.
func (h *LegHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req dto.CompleteLegRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.ActualCost == nil || req.ActualDurationMinutes == nil {
		err := fmt.Errorf("%w: actual_cost and actual_duration_minutes are required", domain.ErrInvalidActuals)
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var completedAt time.Time
	if req.CompletedAt != nil {
		completedAt = *req.CompletedAt
	}

	res, err := h.Lifecycle.Complete(r.Context(), services.CompleteLegRequest{
		LegID:                 chi.URLParam(r, "id"),
		ActualCost:            *req.ActualCost,
		ActualDurationMinutes: *req.ActualDurationMinutes,
		CompletedAt:           completedAt,
	})
	if err != nil {
		writeServiceError(w, r, "legs.complete", err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}
