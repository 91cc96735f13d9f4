package domain

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"
)

// Represents a single direct hop of a candidate route.
// A LegPlan is owned by exactly one RouteOption and never persisted on its own.
type LegPlan struct {
	Origin          Waypoint        `json:"origin"`
	Destination     Waypoint        `json:"destination"`
	DistanceKm      decimal.Decimal `json:"distance_km"`
	DurationMinutes decimal.Decimal `json:"duration_minutes"`
	EstimatedCost   decimal.Decimal `json:"estimated_cost"`
	Geometry        orb.LineString  `json:"-"`
	Fallback        bool            `json:"fallback"`
}

// Represents a candidate origin-to-destination path with aggregate metrics.
// A RouteOption is immutable planning data and contains no side effects;
// it only becomes a Route through an explicit selection.
type RouteOption struct {
	ID                   string          `json:"id"`
	TariffID             string          `json:"tariff_id"`
	Cargo                Cargo           `json:"cargo"`
	Legs                 []LegPlan       `json:"legs"`
	TotalDistanceKm      decimal.Decimal `json:"total_distance_km"`
	TotalDurationMinutes decimal.Decimal `json:"total_duration_minutes"`
	TotalCost            decimal.Decimal `json:"total_cost"`
	Geometry             orb.LineString  `json:"geometry"`
	RankIndex            int             `json:"rank_index"`
	GeneratedAt          time.Time       `json:"generated_at"`
}

// Validate checks that the legs form a contiguous chain.
func (o *RouteOption) Validate() error {
	if len(o.Legs) == 0 {
		return fmt.Errorf("route option %s: no legs", o.ID)
	}
	for i := 0; i+1 < len(o.Legs); i++ {
		if o.Legs[i].Destination.Point != o.Legs[i+1].Origin.Point {
			return fmt.Errorf(
				"route option %s: leg %d ends at %s but leg %d starts at %s",
				o.ID, i, o.Legs[i].Destination.Point.Key(), i+1, o.Legs[i+1].Origin.Point.Key(),
			)
		}
	}
	return nil
}

// Route is the persisted form of a selected option, owned by one shipment.
type Route struct {
	ID               string     `json:"id"`
	ShipmentID       string     `json:"shipment_id"`
	SelectedOptionID string     `json:"selected_option_id"`
	Cargo            Cargo      `json:"cargo"`
	Legs             []Leg      `json:"legs"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// AllCompleted reports whether every leg reached COMPLETED.
func (r *Route) AllCompleted() bool {
	if len(r.Legs) == 0 {
		return false
	}
	for _, l := range r.Legs {
		if l.State != LegCompleted {
			return false
		}
	}
	return true
}

// Totals sums actual cost and duration across legs. Legs without
// recorded actuals contribute zero.
func (r *Route) Totals() (cost, durationMinutes decimal.Decimal) {
	cost, durationMinutes = decimal.Zero, decimal.Zero
	for _, l := range r.Legs {
		if l.ActualCost != nil {
			cost = cost.Add(*l.ActualCost)
		}
		if l.ActualDurationMinutes != nil {
			durationMinutes = durationMinutes.Add(*l.ActualDurationMinutes)
		}
	}
	return cost, durationMinutes
}

// CarrierBusyElsewhere reports whether a non-terminal leg other than
// exceptLegID still holds the carrier.
func (r *Route) CarrierBusyElsewhere(carrierID, exceptLegID string) bool {
	for _, l := range r.Legs {
		if l.ID == exceptLegID || l.AssignedCarrierID != carrierID {
			continue
		}
		if !l.State.Terminal() {
			return true
		}
	}
	return false
}
