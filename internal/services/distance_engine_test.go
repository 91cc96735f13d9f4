package services

import (
	"context"
	"testing"

	"cargo-route-service/internal/adapters/distance"
	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedProvider struct {
	r     ports.DistanceResult
	calls int
}

func (p *fixedProvider) Route(context.Context, domain.GeoPoint, domain.GeoPoint) (ports.DistanceResult, error) {
	p.calls++
	return p.r, nil
}

func TestNewDistanceEngineRejectsNonPositiveSpeed(t *testing.T) {
	_, err := NewDistanceEngine(nil, nil, 0)
	require.Error(t, err)
}

func TestDistanceUsesProviderAndCaches(t *testing.T) {
	provider := distance.NewMockRoutingProvider([]distance.MockPair{
		{From: pOrigin, To: pDest, Meters: 12345, Seconds: 600},
	})
	cache := newMemDistanceCache()
	e, err := NewDistanceEngine(provider, cache, 60)
	require.NoError(t, err)

	m, err := e.Distance(context.Background(), pOrigin, pDest)
	require.NoError(t, err)
	assert.False(t, m.Fallback)
	assert.Equal(t, "12.345", m.DistanceKm.String())
	assert.Equal(t, "10", m.DurationMinutes.String())
	assert.Len(t, m.Geometry, 2)
	assert.Equal(t, 1, cache.puts)

	// Second call is served from the cache.
	_, err = e.Distance(context.Background(), pOrigin, pDest)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.Calls(pOrigin, pDest))
}

func TestDistanceFallsBackOnProviderError(t *testing.T) {
	cache := newMemDistanceCache()
	e, err := NewDistanceEngine(failingProvider{}, cache, 60)
	require.NoError(t, err)

	m, err := e.Distance(context.Background(), pOrigin, pMid)
	require.NoError(t, err)
	assert.True(t, m.Fallback)
	assert.InDelta(t, 111.195, m.DistanceKm.InexactFloat64(), 0.001)
	// 111.195 km at 60 km/h
	assert.InDelta(t, 111.2, m.DurationMinutes.InexactFloat64(), 0.01)
	assert.Equal(t, 0, cache.puts, "fallback results are not cached")
}

func TestDistanceFallsBackOnMalformedResult(t *testing.T) {
	p := &fixedProvider{r: ports.DistanceResult{DistanceMeters: -5, DurationSeconds: 10}}
	e, err := NewDistanceEngine(p, nil, 80)
	require.NoError(t, err)

	m, err := e.Distance(context.Background(), pOrigin, pMid)
	require.NoError(t, err)
	assert.True(t, m.Fallback)
	assert.Equal(t, 1, p.calls)
}

func TestDistanceWithoutProviderIsFallback(t *testing.T) {
	e, err := NewDistanceEngine(nil, nil, 60)
	require.NoError(t, err)

	ab, err := e.Distance(context.Background(), pOrigin, pFar)
	require.NoError(t, err)
	ba, err := e.Distance(context.Background(), pFar, pOrigin)
	require.NoError(t, err)

	assert.True(t, ab.Fallback)
	assert.True(t, ab.DistanceKm.Equal(ba.DistanceKm))
	assert.True(t, ab.DurationMinutes.Equal(ba.DurationMinutes))
}

func TestDistanceIdenticalPoints(t *testing.T) {
	p := &fixedProvider{}
	e, err := NewDistanceEngine(p, nil, 60)
	require.NoError(t, err)

	m, err := e.Distance(context.Background(), pMid, pMid)
	require.NoError(t, err)
	assert.True(t, m.DistanceKm.IsZero())
	assert.True(t, m.DurationMinutes.IsZero())
	assert.Equal(t, 0, p.calls)

	f := e.Fallback(pMid, pMid)
	assert.True(t, f.DistanceKm.IsZero())
}

func TestDistanceRejectsInvalidPoints(t *testing.T) {
	e, err := NewDistanceEngine(nil, nil, 60)
	require.NoError(t, err)

	_, err = e.Distance(context.Background(), domain.GeoPoint{Lat: 91}, pOrigin)
	assert.ErrorIs(t, err, domain.ErrInvalidCoordinates)
}

func TestDistanceCancelledContext(t *testing.T) {
	e, err := NewDistanceEngine(failingProvider{}, nil, 60)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.Distance(ctx, pOrigin, pDest)
	assert.ErrorIs(t, err, context.Canceled)
}
