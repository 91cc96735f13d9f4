package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/platform/obs"
	"cargo-route-service/internal/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RouteDecomposer turns a selected RouteOption into a persisted Route
// with one carrier-assigned leg per hop.
type RouteDecomposer struct {
	tx      ports.Transactor
	options ports.OptionStore
	now     func() time.Time
}

func NewRouteDecomposer(tx ports.Transactor, options ports.OptionStore) *RouteDecomposer {
	return &RouteDecomposer{tx: tx, options: options, now: time.Now}
}

// SelectOption materializes a previously generated option by id.
func (d *RouteDecomposer) SelectOption(ctx context.Context, shipmentID, optionID string, departAt time.Time) (*domain.Route, error) {
	if d.options == nil {
		return nil, fmt.Errorf("select option %s: %w", optionID, domain.ErrOptionNotFound)
	}
	opt, err := d.options.GetOption(ctx, optionID)
	if err != nil {
		return nil, fmt.Errorf("select option %s: %w", optionID, err)
	}
	return d.Materialize(ctx, shipmentID, *opt, departAt)
}

// Materialize persists the option as a Route in one transaction. Either
// every leg gets a carrier and the route is stored, or nothing is.
func (d *RouteDecomposer) Materialize(ctx context.Context, shipmentID string, option domain.RouteOption, departAt time.Time) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "routes.Materialize")(&err)

	shipmentID = strings.TrimSpace(shipmentID)
	if shipmentID == "" {
		return nil, errors.New("materialize: shipment id is required")
	}
	if err := option.Validate(); err != nil {
		return nil, fmt.Errorf("materialize: %w", err)
	}
	if err := option.Cargo.Validate(); err != nil {
		return nil, fmt.Errorf("materialize: %w", err)
	}
	if departAt.IsZero() {
		departAt = d.now()
	}
	departAt = departAt.UTC()

	var route *domain.Route
	err = d.tx.WithinTx(ctx, func(ctx context.Context, tx ports.StoreTx) error {
		r, err := d.assign(ctx, tx, shipmentID, option, departAt)
		if err != nil {
			return err
		}
		if err := tx.InsertRoute(ctx, r); err != nil {
			return fmt.Errorf("insert route: %w", err)
		}
		route = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("materialize shipment %s: %w", shipmentID, err)
	}

	return route, nil
}

// assign picks the cheapest carrier per leg. A carrier already taken by
// an earlier leg of this route stays eligible for the following legs.
func (d *RouteDecomposer) assign(ctx context.Context, tx ports.StoreTx, shipmentID string, option domain.RouteOption, departAt time.Time) (*domain.Route, error) {
	free, err := tx.LockAvailableCarriers(ctx, option.Cargo)
	if err != nil {
		return nil, fmt.Errorf("lock carriers: %w", err)
	}

	taken := make(map[string]domain.Carrier)
	route := &domain.Route{
		ID:               uuid.NewString(),
		ShipmentID:       shipmentID,
		SelectedOptionID: option.ID,
		Cargo:            option.Cargo,
		Legs:             make([]domain.Leg, 0, len(option.Legs)),
		CreatedAt:        d.now().UTC(),
	}

	start := departAt
	for i, plan := range option.Legs {
		c, ok := cheapestCarrier(free, taken, option.Cargo, plan.DistanceKm)
		if !ok {
			return nil, fmt.Errorf("%w: leg %d (%s -> %s)",
				domain.ErrNoCarrierAvailable, i, plan.Origin.Point.Key(), plan.Destination.Point.Key())
		}

		if _, reused := taken[c.ID]; !reused {
			if err := tx.SetCarrierAvailable(ctx, c.ID, false); err != nil {
				if errors.Is(err, domain.ErrNoCarrierAvailable) {
					return nil, err
				}
				return nil, fmt.Errorf("%w: reserve carrier %s: %v", domain.ErrNoCarrierAvailable, c.ID, err)
			}
			taken[c.ID] = c
		}

		end := start.Add(minutesToDuration(plan.DurationMinutes))
		route.Legs = append(route.Legs, domain.Leg{
			ID:                uuid.NewString(),
			RouteID:           route.ID,
			Order:             i,
			Origin:            plan.Origin,
			Destination:       plan.Destination,
			AssignedCarrierID: c.ID,
			State:             domain.LegScheduled,
			DistanceKm:        plan.DistanceKm,
			ScheduledStart:    start,
			ScheduledEnd:      end,
			EstimatedCost:     plan.EstimatedCost,
		})
		start = end
	}

	return route, nil
}

// cheapestCarrier chooses by CostBase + distance*CostPerDistanceUnit,
// ties broken by id.
func cheapestCarrier(free []domain.Carrier, taken map[string]domain.Carrier, cargo domain.Cargo, distanceKm decimal.Decimal) (domain.Carrier, bool) {
	var (
		best     domain.Carrier
		bestCost decimal.Decimal
		found    bool
	)

	consider := func(c domain.Carrier) {
		if !c.CanCarry(cargo) {
			return
		}
		cost := c.CostFor(distanceKm)
		if !found || cost.LessThan(bestCost) || (cost.Equal(bestCost) && c.ID < best.ID) {
			best, bestCost, found = c, cost, true
		}
	}

	for _, c := range free {
		if _, ok := taken[c.ID]; ok {
			continue
		}
		consider(c)
	}
	for _, c := range taken {
		consider(c)
	}

	return best, found
}

func minutesToDuration(m decimal.Decimal) time.Duration {
	return time.Duration(m.Mul(decimal.NewFromInt(int64(time.Minute))).IntPart())
}
