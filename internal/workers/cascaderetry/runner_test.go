package cascaderetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cargo-route-service/internal/adapters/notifier"
	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/ports"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyNotifier struct {
	mu       sync.Mutex
	failFor  map[string]bool
	received []string
}

func (f *flakyNotifier) MarkShipmentCompleted(_ context.Context, c domain.ShipmentCompletion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[c.ShipmentID] {
		return errors.New("shipment service unavailable")
	}
	f.received = append(f.received, c.ShipmentID)
	return nil
}

func (f *flakyNotifier) Received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

func newQueue(t *testing.T) *notifier.RedisNotificationQueue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return notifier.NewRedisNotificationQueue(client, "cascade-retry")
}

func pending(id string, attempts int) ports.PendingNotification {
	return ports.PendingNotification{
		Completion: domain.ShipmentCompletion{ShipmentID: id, RouteID: "route-" + id},
		Attempts:   attempts,
	}
}

func TestDrain(t *testing.T) {
	q := newQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, pending("OK-1", 1)))
	require.NoError(t, q.Enqueue(ctx, pending("DOWN", 1)))
	require.NoError(t, q.Enqueue(ctx, pending("LAST-TRY", 4)))
	require.NoError(t, q.Enqueue(ctx, pending("OK-2", 2)))

	n := &flakyNotifier{failFor: map[string]bool{"DOWN": true, "LAST-TRY": true}}

	stats := Drain(ctx, q, n, 5)
	assert.Equal(t, Stats{Delivered: 2, Requeued: 1, Dropped: 1}, stats)
	assert.Equal(t, []string{"OK-1", "OK-2"}, n.Received())

	left, found, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "DOWN", left.Completion.ShipmentID)
	assert.Equal(t, 2, left.Attempts)
	assert.Contains(t, left.LastError, "unavailable")

	_, found, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRunDeliversUntilCancelled(t *testing.T) {
	q := newQueue(t)
	require.NoError(t, q.Enqueue(context.Background(), pending("SHIP-1", 1)))

	n := &flakyNotifier{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Run(ctx, q, n, 10*time.Millisecond, 3)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(n.Received()) == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestRunDisabled(t *testing.T) {
	// A non-positive interval returns immediately.
	Run(context.Background(), newQueue(t), &flakyNotifier{}, 0, 3)
}
