package handlers

import (
	"context"
	"errors"
	"net/http"

	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/platform/logger"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// statusFor maps core errors to HTTP statuses. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidCoordinates),
		errors.Is(err, domain.ErrInvalidCargo),
		errors.Is(err, domain.ErrInvalidActuals):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrGeocodingFailure),
		errors.Is(err, domain.ErrNoRouteFound),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrOptionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoApplicableTariffBand):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNoCarrierAvailable),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrRouteExists):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs err and writes its mapped status. Internal
// details are only exposed for client errors.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)

	fields := []zap.Field{
		zap.String("req_id", middleware.GetReqID(r.Context())),
		zap.String("op", op),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Get().Error("request failed", fields...)
		writeError(w, r, status, "internal server error")
		return
	}

	logger.Get().Info("request rejected", fields...)
	writeError(w, r, status, err.Error())
}
