package services

import (
	"context"
	"errors"
	"sync"

	"cargo-route-service/internal/adapters/repositories"
	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/ports"

	"github.com/shopspring/decimal"
)

var (
	pOrigin = domain.GeoPoint{Lat: 0, Lon: 0}
	pMid    = domain.GeoPoint{Lat: 0, Lon: 1}
	pDest   = domain.GeoPoint{Lat: 0, Lon: 2}
	pFar    = domain.GeoPoint{Lat: 10, Lon: 10}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func scenarioTariff() domain.Tariff {
	return domain.Tariff{
		ID:                 "T1",
		FixedManagementFee: dec("50"),
		FuelUnitPrice:      dec("1.5"),
		Bands: []domain.TariffBand{
			{VolumeMin: dec("0"), VolumeMax: dec("10"), WeightMin: dec("0"), WeightMax: dec("1000"), CostPerDistanceUnit: dec("2.0")},
			{VolumeMin: dec("10"), VolumeMax: dec("40"), WeightMin: dec("0"), WeightMax: dec("10000"), CostPerDistanceUnit: dec("3.5")},
		},
	}
}

func carrier(id, maxWeight, costBase, perKm string) domain.Carrier {
	return domain.Carrier{
		ID:                  id,
		Plate:               "AB-" + id,
		MaxWeight:           dec(maxWeight),
		MaxVolume:           dec("40"),
		CostBase:            dec(costBase),
		CostPerDistanceUnit: dec(perKm),
		FuelConsumptionRate: dec("0.3"),
		Available:           true,
	}
}

func seededStore(carriers ...domain.Carrier) *repositories.MemoryStore {
	s := repositories.NewMemoryStore()
	_ = s.Seed(context.Background(), repositories.NetworkSeed{
		Tariff: scenarioTariff(),
		Deposits: []domain.Deposit{
			{ID: "D-MID", Name: "Mid deposit", Location: pMid},
			{ID: "D-FAR", Name: "Far deposit", Location: pFar},
		},
		Carriers: carriers,
	})
	return s
}

type memDistanceCache struct {
	mu   sync.Mutex
	m    map[string]ports.DistanceResult
	puts int
}

func newMemDistanceCache() *memDistanceCache {
	return &memDistanceCache{m: map[string]ports.DistanceResult{}}
}

func (c *memDistanceCache) Get(_ context.Context, a, b domain.GeoPoint) (ports.DistanceResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.m[a.Key()+"|"+b.Key()]
	return r, ok, nil
}

func (c *memDistanceCache) Put(_ context.Context, a, b domain.GeoPoint, r ports.DistanceResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[a.Key()+"|"+b.Key()] = r
	c.puts++
	return nil
}

type memGeocodeCache struct {
	m map[string]domain.GeoPoint
}

func (c *memGeocodeCache) Get(_ context.Context, addr string) (domain.GeoPoint, bool, error) {
	p, ok := c.m[addr]
	return p, ok, nil
}

func (c *memGeocodeCache) Put(_ context.Context, addr string, p domain.GeoPoint) error {
	c.m[addr] = p
	return nil
}

type memOptionStore struct {
	mu sync.Mutex
	m  map[string]domain.RouteOption
	// saveErr, when set, fails every SaveOptions.
	saveErr error
}

func newMemOptionStore() *memOptionStore {
	return &memOptionStore{m: map[string]domain.RouteOption{}}
}

func (s *memOptionStore) SaveOptions(_ context.Context, options []domain.RouteOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	for _, o := range options {
		s.m[o.ID] = o
	}
	return nil
}

func (s *memOptionStore) GetOption(_ context.Context, id string) (*domain.RouteOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.m[id]
	if !ok {
		return nil, domain.ErrOptionNotFound
	}
	return &o, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []domain.ShipmentCompletion
	err   error
}

func (n *recordingNotifier) MarkShipmentCompleted(_ context.Context, c domain.ShipmentCompletion) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, c)
	return n.err
}

func (n *recordingNotifier) Calls() []domain.ShipmentCompletion {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.ShipmentCompletion(nil), n.calls...)
}

type memQueue struct {
	mu    sync.Mutex
	items []ports.PendingNotification
}

func (q *memQueue) Enqueue(_ context.Context, n ports.PendingNotification) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, n)
	return nil
}

func (q *memQueue) Dequeue(_ context.Context) (ports.PendingNotification, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return ports.PendingNotification{}, false, nil
	}
	n := q.items[0]
	q.items = q.items[1:]
	return n, true, nil
}

var errProviderDown = errors.New("provider down")

type failingProvider struct{}

func (failingProvider) Route(context.Context, domain.GeoPoint, domain.GeoPoint) (ports.DistanceResult, error) {
	return ports.DistanceResult{}, errProviderDown
}
