package ports

import (
	"context"

	"cargo-route-service/internal/domain"
)

// Port: read access to the active tariff.
type TariffRepository interface {
	ActiveTariff(ctx context.Context) (*domain.Tariff, error)
}

// Port: read access to storage deposits used as intermediate stops.
type DepositRepository interface {
	ListDeposits(ctx context.Context) ([]domain.Deposit, error)
}

// Port: read access to carriers outside of an assignment transaction.
type CarrierRepository interface {
	GetCarrier(ctx context.Context, id string) (*domain.Carrier, error)
}

// Port: read access to persisted routes and legs.
type RouteRepository interface {
	GetRoute(ctx context.Context, id string) (*domain.Route, error)
	GetLeg(ctx context.Context, id string) (*domain.Leg, error)
}

// Transactor runs fn inside a single serializable unit of work. If fn
// returns an error nothing it wrote is kept.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx StoreTx) error) error
}

// StoreTx is the set of writes the route decomposer and leg lifecycle
// need, all bound to one transaction.
type StoreTx interface {
	// Lock and return available carriers able to carry the cargo. Rows
	// already locked by a concurrent transaction are skipped.
	LockAvailableCarriers(ctx context.Context, cargo domain.Cargo) ([]domain.Carrier, error)
	// Flip the availability flag. Setting false on a carrier that is not
	// available reports domain.ErrNoCarrierAvailable.
	SetCarrierAvailable(ctx context.Context, carrierID string, available bool) error

	InsertRoute(ctx context.Context, route *domain.Route) error
	// Lock the route row and load it with all of its legs.
	LockRoute(ctx context.Context, routeID string) (*domain.Route, error)
	// Route id owning the leg, without locking.
	RouteIDForLeg(ctx context.Context, legID string) (string, error)
	UpdateLeg(ctx context.Context, leg *domain.Leg) error
	MarkRouteCompleted(ctx context.Context, route *domain.Route) error
}
