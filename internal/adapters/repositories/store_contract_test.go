package repositories

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contractStore is what both store implementations expose.
type contractStore interface {
	ports.TariffRepository
	ports.DepositRepository
	ports.CarrierRepository
	ports.RouteRepository
	ports.Transactor
	Seeder
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testSeed() NetworkSeed {
	return NetworkSeed{
		Tariff: domain.Tariff{
			ID:                 "T1",
			FixedManagementFee: dec("50"),
			FuelUnitPrice:      dec("1.5"),
			Bands: []domain.TariffBand{
				{VolumeMin: dec("10"), VolumeMax: dec("40"), WeightMin: dec("0"), WeightMax: dec("10000"), CostPerDistanceUnit: dec("3.5")},
				{VolumeMin: dec("0"), VolumeMax: dec("10"), WeightMin: dec("0"), WeightMax: dec("1000"), CostPerDistanceUnit: dec("2")},
			},
		},
		Deposits: []domain.Deposit{
			{ID: "D1", Name: "North", Location: domain.GeoPoint{Lat: 41.6, Lon: -0.9}},
		},
		Carriers: []domain.Carrier{
			{ID: "C2", Plate: "B", MaxWeight: dec("3500"), MaxVolume: dec("20"), CostBase: dec("60"), CostPerDistanceUnit: dec("1.2"), FuelConsumptionRate: dec("0.2"), Available: true},
			{ID: "C1", Plate: "A", MaxWeight: dec("1000"), MaxVolume: dec("10"), CostBase: dec("40"), CostPerDistanceUnit: dec("0.9"), FuelConsumptionRate: dec("0.1"), Available: true},
			{ID: "C3", Plate: "C", MaxWeight: dec("24000"), MaxVolume: dec("90"), CostBase: dec("120"), CostPerDistanceUnit: dec("2.1"), FuelConsumptionRate: dec("0.3"), Available: false},
		},
	}
}

func testRoute(shipmentID string) *domain.Route {
	routeID := uuid.NewString()
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	a := domain.Waypoint{Point: domain.GeoPoint{Lat: 40.4, Lon: -3.7}, Label: "origin"}
	d := domain.Waypoint{Point: domain.GeoPoint{Lat: 41.6, Lon: -0.9}, DepositID: "D1", Label: "North"}
	b := domain.Waypoint{Point: domain.GeoPoint{Lat: 41.4, Lon: 2.2}, Label: "destination"}

	leg := func(order int, from, to domain.Waypoint, km string) domain.Leg {
		return domain.Leg{
			ID:                uuid.NewString(),
			RouteID:           routeID,
			Order:             order,
			Origin:            from,
			Destination:       to,
			AssignedCarrierID: "C1",
			State:             domain.LegScheduled,
			DistanceKm:        dec(km),
			ScheduledStart:    start.Add(time.Duration(order) * 4 * time.Hour),
			ScheduledEnd:      start.Add(time.Duration(order+1) * 4 * time.Hour),
			EstimatedCost:     dec(km).Mul(dec("2")),
		}
	}

	return &domain.Route{
		ID:               routeID,
		ShipmentID:       shipmentID,
		SelectedOptionID: "opt-1",
		Cargo:            domain.Cargo{Weight: dec("500"), Volume: dec("5")},
		Legs:             []domain.Leg{leg(0, a, d, "310"), leg(1, d, b, "300")},
		CreatedAt:        start,
	}
}

// runStoreContract exercises behavior every store must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) contractStore) {
	ctx := context.Background()

	t.Run("reference data", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Seed(ctx, testSeed()))

		tariff, err := s.ActiveTariff(ctx)
		require.NoError(t, err)
		assert.Equal(t, "T1", tariff.ID)
		require.Len(t, tariff.Bands, 2)
		assert.True(t, tariff.Bands[0].CostPerDistanceUnit.Equal(dec("3.5")))

		deposits, err := s.ListDeposits(ctx)
		require.NoError(t, err)
		require.Len(t, deposits, 1)
		assert.Equal(t, "D1", deposits[0].ID)

		c, err := s.GetCarrier(ctx, "C2")
		require.NoError(t, err)
		assert.True(t, c.MaxWeight.Equal(dec("3500")))

		_, err = s.GetCarrier(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("lock available carriers", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Seed(ctx, testSeed()))

		var ids []string
		err := s.WithinTx(ctx, func(ctx context.Context, tx ports.StoreTx) error {
			cs, err := tx.LockAvailableCarriers(ctx, domain.Cargo{Weight: dec("800"), Volume: dec("5")})
			for _, c := range cs {
				ids = append(ids, c.ID)
			}
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"C1", "C2"}, ids)
	})

	t.Run("double assignment is rejected", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Seed(ctx, testSeed()))

		require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx ports.StoreTx) error {
			return tx.SetCarrierAvailable(ctx, "C1", false)
		}))
		err := s.WithinTx(ctx, func(ctx context.Context, tx ports.StoreTx) error {
			return tx.SetCarrierAvailable(ctx, "C1", false)
		})
		assert.ErrorIs(t, err, domain.ErrNoCarrierAvailable)

		c, err := s.GetCarrier(ctx, "C1")
		require.NoError(t, err)
		assert.False(t, c.Available)
	})

	t.Run("failed tx rolls back", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Seed(ctx, testSeed()))

		boom := errors.New("boom")
		err := s.WithinTx(ctx, func(ctx context.Context, tx ports.StoreTx) error {
			if err := tx.SetCarrierAvailable(ctx, "C1", false); err != nil {
				return err
			}
			if err := tx.InsertRoute(ctx, testRoute("S-rollback")); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		c, err := s.GetCarrier(ctx, "C1")
		require.NoError(t, err)
		assert.True(t, c.Available)

		err = s.WithinTx(ctx, func(ctx context.Context, tx ports.StoreTx) error {
			return tx.InsertRoute(ctx, testRoute("S-rollback"))
		})
		assert.NoError(t, err)
	})

	t.Run("route lifecycle", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Seed(ctx, testSeed()))

		r := testRoute("S-1")
		require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx ports.StoreTx) error {
			return tx.InsertRoute(ctx, r)
		}))

		err := s.WithinTx(ctx, func(ctx context.Context, tx ports.StoreTx) error {
			return tx.InsertRoute(ctx, testRoute("S-1"))
		})
		assert.ErrorIs(t, err, domain.ErrRouteExists)

		got, err := s.GetRoute(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, "S-1", got.ShipmentID)
		require.Len(t, got.Legs, 2)
		assert.Equal(t, r.Legs[0].ID, got.Legs[0].ID)
		assert.Equal(t, "D1", got.Legs[0].Destination.DepositID)
		assert.True(t, got.Legs[1].DistanceKm.Equal(dec("300")))
		assert.True(t, got.Legs[0].ScheduledStart.Equal(r.Legs[0].ScheduledStart))
		assert.Nil(t, got.CompletedAt)

		done := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
		require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, tx ports.StoreTx) error {
			routeID, err := tx.RouteIDForLeg(ctx, r.Legs[1].ID)
			if err != nil {
				return err
			}
			locked, err := tx.LockRoute(ctx, routeID)
			if err != nil {
				return err
			}
			leg := locked.Legs[1]
			leg.State = domain.LegCancelled
			leg.ActualEnd = &done
			if err := tx.UpdateLeg(ctx, &leg); err != nil {
				return err
			}
			locked.CompletedAt = &done
			return tx.MarkRouteCompleted(ctx, locked)
		}))

		leg, err := s.GetLeg(ctx, r.Legs[1].ID)
		require.NoError(t, err)
		assert.Equal(t, domain.LegCancelled, leg.State)
		require.NotNil(t, leg.ActualEnd)
		assert.True(t, leg.ActualEnd.Equal(done))

		got, err = s.GetRoute(ctx, r.ID)
		require.NoError(t, err)
		require.NotNil(t, got.CompletedAt)
		assert.True(t, got.CompletedAt.Equal(done))

		for _, id := range []string{uuid.NewString(), "nope", ""} {
			_, err = s.GetLeg(ctx, id)
			assert.ErrorIs(t, err, domain.ErrNotFound, id)
			_, err = s.GetRoute(ctx, id)
			assert.ErrorIs(t, err, domain.ErrNotFound, id)

			err = s.WithinTx(ctx, func(ctx context.Context, tx ports.StoreTx) error {
				if _, err := tx.RouteIDForLeg(ctx, id); !errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("route for leg %q: %v", id, err)
				}
				if _, err := tx.LockRoute(ctx, id); !errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("lock route %q: %v", id, err)
				}
				return nil
			})
			assert.NoError(t, err, id)
		}
	})
}
