package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cargo-route-service/internal/adapters/repositories"
	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/platform/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeLegRoute(t *testing.T, s *repositories.MemoryStore) *domain.Route {
	t.Helper()

	o := domain.Waypoint{Point: pOrigin, Label: "origin"}
	m := domain.Waypoint{Point: pMid, DepositID: "D-MID"}
	f := domain.Waypoint{Point: pFar, DepositID: "D-FAR"}
	d := domain.Waypoint{Point: pDest, Label: "destination"}

	opt := domain.RouteOption{
		ID:    "opt-3",
		Cargo: domain.NewCargo(500, 5),
		Legs: []domain.LegPlan{
			legPlan(o, m, "100", "60", "200"),
			legPlan(m, f, "1500", "900", "3000"),
			legPlan(f, d, "1400", "840", "2800"),
		},
	}

	r, err := NewRouteDecomposer(s, nil).Materialize(context.Background(), "SHIP-3", opt, depart)
	require.NoError(t, err)
	return r
}

func startAll(t *testing.T, lc *LegLifecycle, r *domain.Route) {
	t.Helper()
	for _, l := range r.Legs {
		_, err := lc.Start(context.Background(), l.ID)
		require.NoError(t, err)
	}
}

func completeReq(legID, cost, minutes string) CompleteLegRequest {
	return CompleteLegRequest{LegID: legID, ActualCost: dec(cost), ActualDurationMinutes: dec(minutes)}
}

func TestCompletingLastLegCascadesExactlyOnce(t *testing.T) {
	s := seededStore(carrier("C-1", "5000", "10", "1"))
	r := threeLegRoute(t, s)
	notifier := &recordingNotifier{}
	lc := NewLegLifecycle(s, notifier, nil)
	startAll(t, lc, r)

	ctx := auth.WithBearerToken(context.Background(), "caller-token")

	res, err := lc.Complete(ctx, completeReq(r.Legs[0].ID, "210.50", "65"))
	require.NoError(t, err)
	assert.False(t, res.ShipmentCompleted)
	assert.Equal(t, domain.LegCompleted, res.Leg.State)

	res, err = lc.Complete(ctx, completeReq(r.Legs[1].ID, "2990", "910"))
	require.NoError(t, err)
	assert.False(t, res.ShipmentCompleted)
	assert.Empty(t, notifier.Calls())

	res, err = lc.Complete(ctx, completeReq(r.Legs[2].ID, "2805.25", "850.5"))
	require.NoError(t, err)
	assert.True(t, res.ShipmentCompleted)
	assert.True(t, res.NotificationDelivered)

	calls := notifier.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "SHIP-3", calls[0].ShipmentID)
	assert.Equal(t, r.ID, calls[0].RouteID)
	assert.Equal(t, "6005.75", calls[0].FinalCost.String())
	assert.Equal(t, "1825.5", calls[0].FinalDurationMinutes.String())

	stored, err := s.GetRoute(context.Background(), r.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.CompletedAt)

	c, err := s.GetCarrier(context.Background(), "C-1")
	require.NoError(t, err)
	assert.True(t, c.Available, "carrier is released once its last leg ends")
}

func TestCarrierStaysBusyWhileRouteHasOpenLegs(t *testing.T) {
	s := seededStore(carrier("C-1", "5000", "10", "1"))
	r := threeLegRoute(t, s)
	lc := NewLegLifecycle(s, &recordingNotifier{}, nil)

	_, err := lc.Start(context.Background(), r.Legs[0].ID)
	require.NoError(t, err)
	_, err = lc.Complete(context.Background(), completeReq(r.Legs[0].ID, "1", "1"))
	require.NoError(t, err)

	c, err := s.GetCarrier(context.Background(), "C-1")
	require.NoError(t, err)
	assert.False(t, c.Available)
}

func TestConcurrentCompletionsNotifyOnce(t *testing.T) {
	for run := 0; run < 20; run++ {
		s := seededStore(carrier("C-1", "5000", "10", "1"))
		r := threeLegRoute(t, s)
		notifier := &recordingNotifier{}
		lc := NewLegLifecycle(s, notifier, nil)
		startAll(t, lc, r)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			completed int
		)
		for _, l := range r.Legs {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				res, err := lc.Complete(context.Background(), completeReq(id, "10", "5"))
				if !assert.NoError(t, err) {
					return
				}
				if res.ShipmentCompleted {
					mu.Lock()
					completed++
					mu.Unlock()
				}
			}(l.ID)
		}
		wg.Wait()

		assert.Equal(t, 1, completed)
		require.Len(t, notifier.Calls(), 1)
		assert.Equal(t, "30", notifier.Calls()[0].FinalCost.String())
	}
}

func TestNotifierFailureKeepsLegCompletedAndQueuesRetry(t *testing.T) {
	s := seededStore(carrier("C-1", "5000", "10", "1"))
	r := threeLegRoute(t, s)
	notifier := &recordingNotifier{err: errors.New("connection refused")}
	queue := &memQueue{}
	lc := NewLegLifecycle(s, notifier, queue)
	startAll(t, lc, r)

	var last LegTransitionResult
	for _, l := range r.Legs {
		var err error
		last, err = lc.Complete(context.Background(), completeReq(l.ID, "10", "5"))
		require.NoError(t, err)
	}

	assert.True(t, last.ShipmentCompleted)
	assert.False(t, last.NotificationDelivered)

	leg, err := s.GetLeg(context.Background(), r.Legs[2].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LegCompleted, leg.State)

	n, found, err := queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "SHIP-3", n.Completion.ShipmentID)
	assert.Equal(t, 1, n.Attempts)
	assert.Contains(t, n.LastError, "connection refused")
}

func TestInvalidTransitions(t *testing.T) {
	s := seededStore(carrier("C-1", "5000", "10", "1"))
	r := threeLegRoute(t, s)
	lc := NewLegLifecycle(s, &recordingNotifier{}, nil)
	id := r.Legs[0].ID

	_, err := lc.Complete(context.Background(), completeReq(id, "1", "1"))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "cannot complete a scheduled leg")

	_, err = lc.Start(context.Background(), id)
	require.NoError(t, err)
	_, err = lc.Start(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = lc.Cancel(context.Background(), id)
	require.NoError(t, err)
	_, err = lc.Cancel(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	leg, err := s.GetLeg(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.LegCancelled, leg.State)

	_, err = lc.Start(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelNeverCascades(t *testing.T) {
	s := seededStore(carrier("C-1", "5000", "10", "1"))
	r := threeLegRoute(t, s)
	notifier := &recordingNotifier{}
	lc := NewLegLifecycle(s, notifier, nil)
	startAll(t, lc, r)

	_, err := lc.Complete(context.Background(), completeReq(r.Legs[0].ID, "1", "1"))
	require.NoError(t, err)
	_, err = lc.Complete(context.Background(), completeReq(r.Legs[1].ID, "1", "1"))
	require.NoError(t, err)

	res, err := lc.Cancel(context.Background(), r.Legs[2].ID)
	require.NoError(t, err)
	assert.False(t, res.ShipmentCompleted)
	assert.Empty(t, notifier.Calls())

	c, err := s.GetCarrier(context.Background(), "C-1")
	require.NoError(t, err)
	assert.True(t, c.Available)
}
