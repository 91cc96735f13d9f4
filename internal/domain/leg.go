package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LegState is the progress of a single leg.
type LegState string

const (
	LegScheduled  LegState = "SCHEDULED"
	LegInProgress LegState = "IN_PROGRESS"
	LegCompleted  LegState = "COMPLETED"
	LegCancelled  LegState = "CANCELLED"
)

// Terminal reports whether no further transition is possible.
func (s LegState) Terminal() bool { return s == LegCompleted || s == LegCancelled }

func (s LegState) Valid() bool {
	switch s {
	case LegScheduled, LegInProgress, LegCompleted, LegCancelled:
		return true
	}
	return false
}

// Leg is one persisted hop of a Route. Legs are never deleted; they only
// move forward through SCHEDULED -> IN_PROGRESS -> COMPLETED, or to CANCELLED.
type Leg struct {
	ID                    string           `json:"id"`
	RouteID               string           `json:"route_id"`
	Order                 int              `json:"order"`
	Origin                Waypoint         `json:"origin"`
	Destination           Waypoint         `json:"destination"`
	AssignedCarrierID     string           `json:"assigned_carrier_id"`
	State                 LegState         `json:"state"`
	DistanceKm            decimal.Decimal  `json:"distance_km"`
	ScheduledStart        time.Time        `json:"scheduled_start"`
	ScheduledEnd          time.Time        `json:"scheduled_end"`
	ActualStart           *time.Time       `json:"actual_start,omitempty"`
	ActualEnd             *time.Time       `json:"actual_end,omitempty"`
	EstimatedCost         decimal.Decimal  `json:"estimated_cost"`
	ActualCost            *decimal.Decimal `json:"actual_cost,omitempty"`
	ActualDurationMinutes *decimal.Decimal `json:"actual_duration_minutes,omitempty"`
}

func (l *Leg) invalid(target LegState) error {
	return fmt.Errorf("%w: leg %s is %s, cannot move to %s", ErrInvalidTransition, l.ID, l.State, target)
}

// Start moves a scheduled leg into progress.
func (l *Leg) Start(at time.Time) error {
	if l.State != LegScheduled {
		return l.invalid(LegInProgress)
	}
	l.State = LegInProgress
	l.ActualStart = &at
	return nil
}

// Complete records actuals on a leg in progress.
func (l *Leg) Complete(actualCost, actualDurationMinutes decimal.Decimal, at time.Time) error {
	if l.State != LegInProgress {
		return l.invalid(LegCompleted)
	}
	if actualCost.IsNegative() || actualDurationMinutes.IsNegative() {
		return fmt.Errorf("%w: leg %s actual cost and duration must not be negative", ErrInvalidActuals, l.ID)
	}
	l.State = LegCompleted
	l.ActualEnd = &at
	l.ActualCost = &actualCost
	l.ActualDurationMinutes = &actualDurationMinutes
	return nil
}

// Cancel ends a leg that has not completed.
func (l *Leg) Cancel(at time.Time) error {
	if l.State != LegScheduled && l.State != LegInProgress {
		return l.invalid(LegCancelled)
	}
	l.State = LegCancelled
	l.ActualEnd = &at
	return nil
}
