package cache

import (
	"context"
	"slices"
	"time"

	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/ports"

	gocache "github.com/patrickmn/go-cache"
)

const activeTariffKey = "active"

// TariffCache memoizes the active tariff in process. Tariffs change
// rarely and are read on every pricing and planning request.
type TariffCache struct {
	next  ports.TariffRepository
	store *gocache.Cache
}

func NewTariffCache(next ports.TariffRepository, ttl time.Duration) *TariffCache {
	return &TariffCache{
		next:  next,
		store: gocache.New(ttl, 2*ttl),
	}
}

func (c *TariffCache) ActiveTariff(ctx context.Context) (*domain.Tariff, error) {
	if v, ok := c.store.Get(activeTariffKey); ok {
		return cloneTariff(v.(*domain.Tariff)), nil
	}

	t, err := c.next.ActiveTariff(ctx)
	if err != nil {
		return nil, err
	}

	c.store.SetDefault(activeTariffKey, cloneTariff(t))
	return t, nil
}

// Invalidate drops the memoized tariff, e.g. after reseeding.
func (c *TariffCache) Invalidate() {
	c.store.Delete(activeTariffKey)
}

func cloneTariff(t *domain.Tariff) *domain.Tariff {
	out := *t
	out.Bands = slices.Clone(t.Bands)
	return &out
}
