package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cargo-route-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var depart = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func legPlan(from, to domain.Waypoint, km, minutes, cost string) domain.LegPlan {
	return domain.LegPlan{
		Origin:          from,
		Destination:     to,
		DistanceKm:      dec(km),
		DurationMinutes: dec(minutes),
		EstimatedCost:   dec(cost),
	}
}

func twoLegOption(cargo domain.Cargo) domain.RouteOption {
	o := domain.Waypoint{Point: pOrigin, Label: "origin"}
	m := domain.Waypoint{Point: pMid, DepositID: "D-MID", Label: "Mid deposit"}
	d := domain.Waypoint{Point: pDest, Label: "destination"}

	return domain.RouteOption{
		ID:    "opt-1",
		Cargo: cargo,
		Legs: []domain.LegPlan{
			legPlan(o, m, "100", "90", "200"),
			legPlan(m, d, "120", "30.5", "240"),
		},
	}
}

func TestMaterializeAssignsCheapestCarrierAndSchedules(t *testing.T) {
	s := seededStore(
		carrier("C-EXPENSIVE", "5000", "100", "3"),
		carrier("C-CHEAP", "5000", "20", "1"),
		carrier("C-SMALL", "100", "0", "0"),
	)
	d := NewRouteDecomposer(s, nil)

	r, err := d.Materialize(context.Background(), "SHIP-1", twoLegOption(domain.NewCargo(500, 5)), depart)
	require.NoError(t, err)

	require.Len(t, r.Legs, 2)
	assert.Equal(t, "SHIP-1", r.ShipmentID)
	assert.Equal(t, "opt-1", r.SelectedOptionID)
	for i, l := range r.Legs {
		assert.Equal(t, i, l.Order)
		assert.Equal(t, domain.LegScheduled, l.State)
		assert.Equal(t, "C-CHEAP", l.AssignedCarrierID, "carrier runs both legs of the route")
		assert.Equal(t, r.ID, l.RouteID)
	}

	assert.Equal(t, depart, r.Legs[0].ScheduledStart)
	assert.Equal(t, depart.Add(90*time.Minute), r.Legs[0].ScheduledEnd)
	assert.Equal(t, r.Legs[0].ScheduledEnd, r.Legs[1].ScheduledStart)
	assert.Equal(t, r.Legs[1].ScheduledStart.Add(30*time.Minute+30*time.Second), r.Legs[1].ScheduledEnd)

	cheap, err := s.GetCarrier(context.Background(), "C-CHEAP")
	require.NoError(t, err)
	assert.False(t, cheap.Available)

	expensive, err := s.GetCarrier(context.Background(), "C-EXPENSIVE")
	require.NoError(t, err)
	assert.True(t, expensive.Available)

	stored, err := s.GetRoute(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Legs, 2)
}

func TestMaterializeTieBreaksByCarrierID(t *testing.T) {
	s := seededStore(
		carrier("C-B", "5000", "10", "1"),
		carrier("C-A", "5000", "10", "1"),
	)
	d := NewRouteDecomposer(s, nil)

	r, err := d.Materialize(context.Background(), "SHIP-1", twoLegOption(domain.NewCargo(500, 5)), depart)
	require.NoError(t, err)
	assert.Equal(t, "C-A", r.Legs[0].AssignedCarrierID)
}

func TestMaterializeIsAllOrNothing(t *testing.T) {
	s := seededStore(carrier("C-SMALL", "100", "0", "0"))
	d := NewRouteDecomposer(s, nil)

	_, err := d.Materialize(context.Background(), "SHIP-1", twoLegOption(domain.NewCargo(500, 5)), depart)
	assert.ErrorIs(t, err, domain.ErrNoCarrierAvailable)
	assert.Equal(t, 0, s.RouteCount())

	c, err := s.GetCarrier(context.Background(), "C-SMALL")
	require.NoError(t, err)
	assert.True(t, c.Available)
}

func TestMaterializeRollsBackCarrierOnDuplicateShipment(t *testing.T) {
	s := seededStore(
		carrier("C-1", "5000", "10", "1"),
		carrier("C-2", "5000", "20", "1"),
	)
	d := NewRouteDecomposer(s, nil)

	_, err := d.Materialize(context.Background(), "SHIP-1", twoLegOption(domain.NewCargo(500, 5)), depart)
	require.NoError(t, err)

	_, err = d.Materialize(context.Background(), "SHIP-1", twoLegOption(domain.NewCargo(500, 5)), depart)
	assert.ErrorIs(t, err, domain.ErrRouteExists)
	assert.Equal(t, 1, s.RouteCount())

	c2, err := s.GetCarrier(context.Background(), "C-2")
	require.NoError(t, err)
	assert.True(t, c2.Available, "the failed attempt must not keep its carrier")
}

func TestMaterializeConcurrentRequestsNeverShareACarrier(t *testing.T) {
	s := seededStore(carrier("C-ONLY", "5000", "10", "1"))
	d := NewRouteDecomposer(s, nil)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		exhausted int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := d.Materialize(context.Background(), fmt.Sprintf("SHIP-%d", i), twoLegOption(domain.NewCargo(500, 5)), depart)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrNoCarrierAvailable):
				exhausted++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, exhausted)
	assert.Equal(t, 1, s.RouteCount())
}

func TestMaterializeRejectsBrokenChain(t *testing.T) {
	s := seededStore(carrier("C-1", "5000", "10", "1"))
	d := NewRouteDecomposer(s, nil)

	opt := twoLegOption(domain.NewCargo(500, 5))
	opt.Legs[1].Origin = domain.Waypoint{Point: pFar}

	_, err := d.Materialize(context.Background(), "SHIP-1", opt, depart)
	require.Error(t, err)
	assert.Equal(t, 0, s.RouteCount())
}

func TestSelectOption(t *testing.T) {
	s := seededStore(carrier("C-1", "5000", "10", "1"))
	options := newMemOptionStore()
	require.NoError(t, options.SaveOptions(context.Background(), []domain.RouteOption{twoLegOption(domain.NewCargo(500, 5))}))
	d := NewRouteDecomposer(s, options)

	r, err := d.SelectOption(context.Background(), "SHIP-1", "opt-1", depart)
	require.NoError(t, err)
	assert.Len(t, r.Legs, 2)

	_, err = d.SelectOption(context.Background(), "SHIP-2", "expired", depart)
	assert.ErrorIs(t, err, domain.ErrOptionNotFound)
}
