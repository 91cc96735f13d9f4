// Package cascaderetry redelivers shipment completions whose first
// notification failed.
package cascaderetry

import (
	"context"
	"time"

	"cargo-route-service/internal/platform/logger"
	"cargo-route-service/internal/ports"

	"go.uber.org/zap"
)

// Stats summarizes one drain of the queue.
type Stats struct {
	Delivered int
	Requeued  int
	Dropped   int
}

// Run drains the queue every interval until ctx is done.
func Run(ctx context.Context, queue ports.NotificationQueue, notifier ports.ShipmentNotifier, interval time.Duration, maxAttempts int) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Get().Info("cascade retry worker started", zap.Duration("interval", interval), zap.Int("max_attempts", maxAttempts))
	for {
		select {
		case <-ctx.Done():
			logger.Get().Info("cascade retry worker stopped")
			return
		case <-ticker.C:
			s := Drain(ctx, queue, notifier, maxAttempts)
			if s != (Stats{}) {
				logger.Get().Info("cascade retry pass",
					zap.Int("delivered", s.Delivered),
					zap.Int("requeued", s.Requeued),
					zap.Int("dropped", s.Dropped),
				)
			}
		}
	}
}

// Drain empties the queue once. Failures go back on the queue after the
// pass so a failing peer is not hammered within a single tick.
func Drain(ctx context.Context, queue ports.NotificationQueue, notifier ports.ShipmentNotifier, maxAttempts int) Stats {
	var (
		stats  Stats
		failed []ports.PendingNotification
	)

	for ctx.Err() == nil {
		n, found, err := queue.Dequeue(ctx)
		if err != nil {
			logger.Get().Warn("dequeue cascade notification failed", zap.Error(err))
			break
		}
		if !found {
			break
		}

		log := logger.Get().With(zap.String("shipment_id", n.Completion.ShipmentID), zap.Int("attempts", n.Attempts))

		if err := notifier.MarkShipmentCompleted(ctx, n.Completion); err != nil {
			n.Attempts++
			n.LastError = err.Error()
			if maxAttempts > 0 && n.Attempts >= maxAttempts {
				log.Error("giving up on shipment completion", zap.Error(err))
				stats.Dropped++
				continue
			}
			failed = append(failed, n)
			continue
		}

		log.Info("shipment completion redelivered")
		stats.Delivered++
	}

	// The pass may end because ctx is done; requeueing must still happen.
	requeueCtx := context.WithoutCancel(ctx)
	for _, n := range failed {
		if err := queue.Enqueue(requeueCtx, n); err != nil {
			logger.Get().Error("requeue shipment completion failed",
				zap.String("shipment_id", n.Completion.ShipmentID), zap.Error(err))
			stats.Dropped++
			continue
		}
		stats.Requeued++
	}

	return stats
}
