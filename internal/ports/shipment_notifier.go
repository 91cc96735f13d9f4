package ports

import (
	"context"

	"cargo-route-service/internal/domain"
)

// Outbound port to the service that owns shipments. Implementations must
// be idempotent per shipment id. The caller's bearer token, when present,
// travels in ctx (see platform/auth).
type ShipmentNotifier interface {
	MarkShipmentCompleted(ctx context.Context, c domain.ShipmentCompletion) error
}

// PendingNotification is a completion that could not be delivered yet.
type PendingNotification struct {
	Completion domain.ShipmentCompletion `json:"completion"`
	Attempts   int                       `json:"attempts"`
	LastError  string                    `json:"last_error,omitempty"`
}

// Out-of-band retry queue for failed cascade notifications.
type NotificationQueue interface {
	Enqueue(ctx context.Context, n PendingNotification) error
	// Dequeue returns found=false when the queue is empty.
	Dequeue(ctx context.Context) (n PendingNotification, found bool, err error)
}
