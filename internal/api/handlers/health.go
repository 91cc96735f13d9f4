package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthHandler reports liveness plus the state of each named dependency.
type HealthHandler struct {
	Checks map[string]func(ctx context.Context) error
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	res := map[string]string{"status": "ok"}
	status := http.StatusOK
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			res[name] = "down"
			res["status"] = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		res[name] = "up"
	}

	writeJSON(w, r, status, res)
}
