package repositories

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/ports"
)

// MemoryStore keeps every entity in process. A single mutex serializes
// transactions; writes are staged on a copy and swapped in on success.
type MemoryStore struct {
	mu       sync.Mutex
	tariff   *domain.Tariff
	deposits []domain.Deposit
	state    memState
}

type memState struct {
	carriers  map[string]domain.Carrier
	routes    map[string]domain.Route
	legRoute  map[string]string
	shipments map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: memState{
			carriers:  map[string]domain.Carrier{},
			routes:    map[string]domain.Route{},
			legRoute:  map[string]string{},
			shipments: map[string]string{},
		},
	}
}

var (
	_ ports.TariffRepository  = (*MemoryStore)(nil)
	_ ports.DepositRepository = (*MemoryStore)(nil)
	_ ports.CarrierRepository = (*MemoryStore)(nil)
	_ ports.RouteRepository   = (*MemoryStore)(nil)
	_ ports.Transactor        = (*MemoryStore)(nil)
	_ Seeder                  = (*MemoryStore)(nil)
)

func (m *MemoryStore) Seed(_ context.Context, s NetworkSeed) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := s.Tariff
	t.Bands = slices.Clone(s.Tariff.Bands)
	m.tariff = &t
	m.deposits = slices.Clone(s.Deposits)
	for _, c := range s.Carriers {
		m.state.carriers[c.ID] = c
	}
	return nil
}

func (m *MemoryStore) ActiveTariff(_ context.Context) (*domain.Tariff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tariff == nil {
		return nil, fmt.Errorf("active tariff: %w", domain.ErrNotFound)
	}
	t := *m.tariff
	t.Bands = slices.Clone(m.tariff.Bands)
	return &t, nil
}

func (m *MemoryStore) ListDeposits(_ context.Context) ([]domain.Deposit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.deposits), nil
}

func (m *MemoryStore) GetCarrier(_ context.Context, id string) (*domain.Carrier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.state.carriers[id]
	if !ok {
		return nil, fmt.Errorf("carrier %s: %w", id, domain.ErrNotFound)
	}
	return &c, nil
}

func (m *MemoryStore) GetRoute(_ context.Context, id string) (*domain.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.state.routes[id]
	if !ok {
		return nil, fmt.Errorf("route %s: %w", id, domain.ErrNotFound)
	}
	return cloneRoute(r), nil
}

func (m *MemoryStore) GetLeg(_ context.Context, id string) (*domain.Leg, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.state.routes[m.state.legRoute[id]]
	if !ok {
		return nil, fmt.Errorf("leg %s: %w", id, domain.ErrNotFound)
	}
	for _, l := range r.Legs {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, fmt.Errorf("leg %s: %w", id, domain.ErrNotFound)
}

// RouteCount is used by tests asserting that nothing was persisted.
func (m *MemoryStore) RouteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.routes)
}

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.StoreTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := memState{
		carriers:  maps.Clone(m.state.carriers),
		routes:    make(map[string]domain.Route, len(m.state.routes)),
		legRoute:  maps.Clone(m.state.legRoute),
		shipments: maps.Clone(m.state.shipments),
	}
	for id, r := range m.state.routes {
		staged.routes[id] = *cloneRoute(r)
	}

	if err := fn(ctx, &memTx{s: &staged}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.state = staged
	return nil
}

func cloneRoute(r domain.Route) *domain.Route {
	r.Legs = slices.Clone(r.Legs)
	return &r
}

type memTx struct {
	s *memState
}

func (t *memTx) LockAvailableCarriers(_ context.Context, cargo domain.Cargo) ([]domain.Carrier, error) {
	out := make([]domain.Carrier, 0, len(t.s.carriers))
	for _, c := range t.s.carriers {
		if c.Available && c.CanCarry(cargo) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b domain.Carrier) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (t *memTx) SetCarrierAvailable(_ context.Context, carrierID string, available bool) error {
	c, ok := t.s.carriers[carrierID]
	if !ok {
		return fmt.Errorf("carrier %s: %w", carrierID, domain.ErrNotFound)
	}
	if !available && !c.Available {
		return fmt.Errorf("%w: carrier %s already assigned", domain.ErrNoCarrierAvailable, carrierID)
	}
	c.Available = available
	t.s.carriers[carrierID] = c
	return nil
}

func (t *memTx) InsertRoute(_ context.Context, r *domain.Route) error {
	if _, ok := t.s.shipments[r.ShipmentID]; ok {
		return fmt.Errorf("shipment %s: %w", r.ShipmentID, domain.ErrRouteExists)
	}
	t.s.routes[r.ID] = *cloneRoute(*r)
	t.s.shipments[r.ShipmentID] = r.ID
	for _, l := range r.Legs {
		t.s.legRoute[l.ID] = r.ID
	}
	return nil
}

func (t *memTx) LockRoute(_ context.Context, routeID string) (*domain.Route, error) {
	r, ok := t.s.routes[routeID]
	if !ok {
		return nil, fmt.Errorf("route %s: %w", routeID, domain.ErrNotFound)
	}
	return cloneRoute(r), nil
}

func (t *memTx) RouteIDForLeg(_ context.Context, legID string) (string, error) {
	id, ok := t.s.legRoute[legID]
	if !ok {
		return "", fmt.Errorf("leg %s: %w", legID, domain.ErrNotFound)
	}
	return id, nil
}

func (t *memTx) UpdateLeg(_ context.Context, leg *domain.Leg) error {
	r, ok := t.s.routes[leg.RouteID]
	if !ok {
		return fmt.Errorf("route %s: %w", leg.RouteID, domain.ErrNotFound)
	}
	for i := range r.Legs {
		if r.Legs[i].ID == leg.ID {
			r.Legs[i] = *leg
			t.s.routes[r.ID] = r
			return nil
		}
	}
	return fmt.Errorf("leg %s: %w", leg.ID, domain.ErrNotFound)
}

func (t *memTx) MarkRouteCompleted(_ context.Context, route *domain.Route) error {
	r, ok := t.s.routes[route.ID]
	if !ok {
		return fmt.Errorf("route %s: %w", route.ID, domain.ErrNotFound)
	}
	r.CompletedAt = route.CompletedAt
	t.s.routes[r.ID] = r
	return nil
}
