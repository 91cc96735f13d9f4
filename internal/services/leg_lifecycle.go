package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/platform/logger"
	"cargo-route-service/internal/platform/obs"
	"cargo-route-service/internal/ports"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CompleteLegRequest struct {
	LegID                 string
	ActualCost            decimal.Decimal
	ActualDurationMinutes decimal.Decimal
	// Zero means now.
	CompletedAt time.Time
}

// LegTransitionResult is the leg after a transition plus the outcome of the
// shipment completion cascade, if one fired.
type LegTransitionResult struct {
	Leg                   domain.Leg `json:"leg"`
	ShipmentCompleted     bool       `json:"shipment_completed"`
	NotificationDelivered bool       `json:"notification_delivered"`
}

// LegLifecycle advances legs and reports finished shipments to their
// owning service.
type LegLifecycle struct {
	tx       ports.Transactor
	notifier ports.ShipmentNotifier
	queue    ports.NotificationQueue
	now      func() time.Time
}

// queue may be nil, in which case undelivered completions are only logged.
func NewLegLifecycle(tx ports.Transactor, notifier ports.ShipmentNotifier, queue ports.NotificationQueue) *LegLifecycle {
	return &LegLifecycle{tx: tx, notifier: notifier, queue: queue, now: time.Now}
}

func (s *LegLifecycle) Start(ctx context.Context, legID string) (_ LegTransitionResult, err error) {
	defer obs.Time(ctx, "legs.Start")(&err)

	at := s.now().UTC()
	leg, _, err := s.transition(ctx, legID, func(l *domain.Leg) error {
		return l.Start(at)
	}, at)
	if err != nil {
		return LegTransitionResult{}, err
	}
	return LegTransitionResult{Leg: leg}, nil
}

func (s *LegLifecycle) Cancel(ctx context.Context, legID string) (_ LegTransitionResult, err error) {
	defer obs.Time(ctx, "legs.Cancel")(&err)

	at := s.now().UTC()
	leg, _, err := s.transition(ctx, legID, func(l *domain.Leg) error {
		return l.Cancel(at)
	}, at)
	if err != nil {
		return LegTransitionResult{}, err
	}
	return LegTransitionResult{Leg: leg}, nil
}

// Complete records the leg's actuals. When it was the last open leg of its
// route the shipment is reported complete after the transaction commits;
// a failed report never undoes the leg's COMPLETED state.
func (s *LegLifecycle) Complete(ctx context.Context, req CompleteLegRequest) (_ LegTransitionResult, err error) {
	defer obs.Time(ctx, "legs.Complete")(&err)

	at := req.CompletedAt
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()

	leg, completion, err := s.transition(ctx, req.LegID, func(l *domain.Leg) error {
		return l.Complete(req.ActualCost, req.ActualDurationMinutes, at)
	}, at)
	if err != nil {
		return LegTransitionResult{}, err
	}

	res := LegTransitionResult{Leg: leg}
	if completion == nil {
		return res, nil
	}

	res.ShipmentCompleted = true
	res.NotificationDelivered = s.notify(ctx, *completion)
	return res, nil
}

// transition applies fn to the leg while holding the route lock, so sibling
// legs completing concurrently observe each other's state and at most one
// of them fires the cascade.
func (s *LegLifecycle) transition(ctx context.Context, legID string, fn func(*domain.Leg) error, at time.Time) (domain.Leg, *domain.ShipmentCompletion, error) {
	var (
		out        domain.Leg
		completion *domain.ShipmentCompletion
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx ports.StoreTx) error {
		routeID, err := tx.RouteIDForLeg(ctx, legID)
		if err != nil {
			return fmt.Errorf("leg %s: %w", legID, err)
		}
		route, err := tx.LockRoute(ctx, routeID)
		if err != nil {
			return fmt.Errorf("lock route %s: %w", routeID, err)
		}

		idx := -1
		for i := range route.Legs {
			if route.Legs[i].ID == legID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("leg %s on route %s: %w", legID, routeID, domain.ErrNotFound)
		}

		leg := &route.Legs[idx]
		if err := fn(leg); err != nil {
			return err
		}
		if err := tx.UpdateLeg(ctx, leg); err != nil {
			return fmt.Errorf("update leg %s: %w", legID, err)
		}

		if leg.State.Terminal() && leg.AssignedCarrierID != "" &&
			!route.CarrierBusyElsewhere(leg.AssignedCarrierID, leg.ID) {
			if err := tx.SetCarrierAvailable(ctx, leg.AssignedCarrierID, true); err != nil {
				return fmt.Errorf("release carrier %s: %w", leg.AssignedCarrierID, err)
			}
		}

		if route.CompletedAt == nil && route.AllCompleted() {
			route.CompletedAt = &at
			if err := tx.MarkRouteCompleted(ctx, route); err != nil {
				return fmt.Errorf("mark route %s completed: %w", routeID, err)
			}
			cost, dur := route.Totals()
			completion = &domain.ShipmentCompletion{
				ShipmentID:           route.ShipmentID,
				RouteID:              route.ID,
				FinalCost:            cost,
				FinalDurationMinutes: dur,
				CompletedAt:          at,
			}
		}

		out = *leg
		return nil
	})
	if err != nil {
		return domain.Leg{}, nil, err
	}

	return out, completion, nil
}

func (s *LegLifecycle) notify(ctx context.Context, c domain.ShipmentCompletion) bool {
	log := logger.Get().With(zap.String("shipment_id", c.ShipmentID), zap.String("route_id", c.RouteID))

	if s.notifier == nil {
		log.Warn("no shipment notifier configured")
		s.enqueue(ctx, c, errors.New("no notifier configured"))
		return false
	}

	err := s.notifier.MarkShipmentCompleted(ctx, c)
	if err == nil {
		log.Info("shipment completion delivered", zap.String("final_cost", c.FinalCost.String()))
		return true
	}

	err = fmt.Errorf("%w: %v", domain.ErrCascadeNotificationFailure, err)
	log.Warn("shipment completion not delivered", zap.Error(err))
	s.enqueue(ctx, c, err)
	return false
}

func (s *LegLifecycle) enqueue(ctx context.Context, c domain.ShipmentCompletion, cause error) {
	if s.queue == nil {
		return
	}
	// The request may already be cancelled; the retry record must still land.
	ctx = context.WithoutCancel(ctx)
	n := ports.PendingNotification{Completion: c, Attempts: 1, LastError: cause.Error()}
	if err := s.queue.Enqueue(ctx, n); err != nil {
		logger.Get().Error("enqueue shipment completion failed",
			zap.String("shipment_id", c.ShipmentID), zap.Error(err))
	}
}
