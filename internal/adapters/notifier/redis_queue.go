package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cargo-route-service/internal/platform/logger"
	"cargo-route-service/internal/ports"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisNotificationQueue is a FIFO list of completions awaiting redelivery.
type RedisNotificationQueue struct {
	client *redis.Client
	key    string
}

func NewRedisNotificationQueue(client *redis.Client, key string) *RedisNotificationQueue {
	return &RedisNotificationQueue{client: client, key: key}
}

func (q *RedisNotificationQueue) Enqueue(ctx context.Context, n ports.PendingNotification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, b).Err(); err != nil {
		return fmt.Errorf("failed to enqueue notification for %s: %w", n.Completion.ShipmentID, err)
	}
	return nil
}

// Dequeue pops the oldest notification. Entries that do not decode are
// moved to DeadLetterKey and skipped.
func (q *RedisNotificationQueue) Dequeue(ctx context.Context) (ports.PendingNotification, bool, error) {
	for {
		b, err := q.client.RPop(ctx, q.key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ports.PendingNotification{}, false, nil
		}
		if err != nil {
			return ports.PendingNotification{}, false, fmt.Errorf("failed to dequeue notification: %w", err)
		}

		var n ports.PendingNotification
		decodeErr := json.Unmarshal(b, &n)
		if decodeErr == nil {
			return n, true, nil
		}
		logger.Get().Error("undecodable notification moved to dead letter",
			zap.String("queue", q.key),
			zap.ByteString("payload", b),
			zap.Error(decodeErr),
		)

		if err := q.client.LPush(ctx, q.DeadLetterKey(), b).Err(); err != nil {
			return ports.PendingNotification{}, false, fmt.Errorf("failed to dead-letter notification %q: %w", b, err)
		}
	}
}

// DeadLetterKey is the list holding entries Dequeue could not decode.
func (q *RedisNotificationQueue) DeadLetterKey() string {
	return q.key + ":dead"
}

// Len reports how many notifications are waiting.
func (q *RedisNotificationQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
