package distance

import (
	"context"
	"fmt"
	"sync"

	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/ports"
)

type MockPair struct {
	From, To domain.GeoPoint
	Meters   int
	Seconds  int
}

// MockRoutingProvider answers from a fixed table keyed by "from|to" and
// fails for any other pair. It counts calls per pair.
type MockRoutingProvider struct {
	m     map[string]ports.DistanceResult
	mu    sync.Mutex
	calls map[string]int
}

func NewMockRoutingProvider(pairs []MockPair) *MockRoutingProvider {
	m := make(map[string]ports.DistanceResult, len(pairs))
	for _, p := range pairs {
		m[p.From.Key()+"|"+p.To.Key()] = ports.DistanceResult{DistanceMeters: p.Meters, DurationSeconds: p.Seconds}
	}
	return &MockRoutingProvider{m: m, calls: map[string]int{}}
}

func (p *MockRoutingProvider) Route(ctx context.Context, origin, destination domain.GeoPoint) (ports.DistanceResult, error) {
	key := origin.Key() + "|" + destination.Key()

	p.mu.Lock()
	p.calls[key]++
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return ports.DistanceResult{}, err
	}

	r, ok := p.m[key]
	if !ok {
		return ports.DistanceResult{}, fmt.Errorf("missing pair %q -> %q", origin.Key(), destination.Key())
	}
	return r, nil
}

// Calls returns how many times the pair was requested.
func (p *MockRoutingProvider) Calls(origin, destination domain.GeoPoint) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[origin.Key()+"|"+destination.Key()]
}

// MockGeocoder resolves from a fixed address table.
type MockGeocoder struct {
	Points map[string]domain.GeoPoint

	mu    sync.Mutex
	calls int
}

func (g *MockGeocoder) Geocode(_ context.Context, address string) (domain.GeoPoint, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	p, ok := g.Points[address]
	if !ok {
		return domain.GeoPoint{}, fmt.Errorf("%w: no geocode results for %q", domain.ErrGeocodingFailure, address)
	}
	return p, nil
}

func (g *MockGeocoder) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}
