package obs

import (
	"context"
	"time"

	"cargo-route-service/internal/platform/logger"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Time logs the duration of an operation and its error, if any.
// Usage: defer obs.Time(ctx, "op.name")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()
	reqID := middleware.GetReqID(ctx)

	return func(errp *error) {
		fields := []zap.Field{
			zap.String("req_id", reqID),
			zap.String("op", name),
			zap.Duration("dur", time.Since(start)),
		}

		if errp != nil && *errp != nil {
			logger.Get().Warn("operation failed", append(fields, zap.Error(*errp))...)
			return
		}
		logger.Get().Debug("operation", fields...)
	}
}
