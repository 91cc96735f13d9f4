package notifier

import (
	"context"
	"fmt"
	"time"

	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/platform/obs"

	"github.com/redis/go-redis/v9"
)

// RedisStreamNotifier publishes shipment completions to a Redis stream
// consumed by the shipment service. Consumers deduplicate on shipment_id.
// Entries are durable and readable by any stream client; caller
// credentials are never written.
type RedisStreamNotifier struct {
	client *redis.Client
	stream string
}

func NewRedisStreamNotifier(client *redis.Client, stream string) *RedisStreamNotifier {
	return &RedisStreamNotifier{client: client, stream: stream}
}

func (n *RedisStreamNotifier) MarkShipmentCompleted(ctx context.Context, c domain.ShipmentCompletion) (err error) {
	defer obs.Time(ctx, "shipment.Publish")(&err)

	values := map[string]interface{}{
		"shipment_id":            c.ShipmentID,
		"route_id":               c.RouteID,
		"final_cost":             c.FinalCost.String(),
		"final_duration_minutes": c.FinalDurationMinutes.String(),
		"completed_at":           c.CompletedAt.UTC().Format(time.RFC3339Nano),
	}

	if err := n.client.XAdd(ctx, &redis.XAddArgs{Stream: n.stream, Values: values}).Err(); err != nil {
		return fmt.Errorf("failed to publish completion of %s: %w", c.ShipmentID, err)
	}
	return nil
}
