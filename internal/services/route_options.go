package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/platform/logger"
	"cargo-route-service/internal/platform/obs"
	"cargo-route-service/internal/ports"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PlanningPolicy holds the configurable knobs of option synthesis.
type PlanningPolicy struct {
	// Extra distance, over the straight origin-destination line, a deposit
	// stop may add and still be considered.
	DetourBudgetKm       float64
	MaxDepositCandidates int
	DistanceConcurrency  int
}

type OptionRequest struct {
	Origin      domain.Location
	Destination domain.Location
	Cargo       domain.Cargo
}

// RouteOptionGenerator synthesizes ranked candidate routes. It has no
// side effects on persisted entities; generated options only go to the
// short-lived option store.
type RouteOptionGenerator struct {
	resolver  *GeoResolver
	distances *DistanceEngine
	tariffs   *TariffEngine
	deposits  ports.DepositRepository
	store     ports.OptionStore
	policy    PlanningPolicy
	now       func() time.Time
}

// store may be nil.
func NewRouteOptionGenerator(
	resolver *GeoResolver,
	distances *DistanceEngine,
	tariffs *TariffEngine,
	deposits ports.DepositRepository,
	store ports.OptionStore,
	policy PlanningPolicy,
) *RouteOptionGenerator {
	if policy.DistanceConcurrency < 1 {
		policy.DistanceConcurrency = 1
	}
	return &RouteOptionGenerator{
		resolver:  resolver,
		distances: distances,
		tariffs:   tariffs,
		deposits:  deposits,
		store:     store,
		policy:    policy,
		now:       time.Now,
	}
}

type pointPair struct {
	from, to domain.GeoPoint
}

func (p pointPair) key() string { return p.from.Key() + "|" + p.to.Key() }

type candidate struct {
	stops  []domain.Waypoint
	detour float64
}

// Generate returns at least one option on success, sorted by cost, then
// duration, then number of legs.
func (g *RouteOptionGenerator) Generate(ctx context.Context, req OptionRequest) (_ []domain.RouteOption, err error) {
	defer obs.Time(ctx, "options.Generate")(&err)

	if err := req.Cargo.Validate(); err != nil {
		return nil, err
	}

	origin, err := g.resolver.Resolve(ctx, req.Origin)
	if err != nil {
		return nil, fmt.Errorf("generate options: resolve origin: %w", err)
	}
	destination, err := g.resolver.Resolve(ctx, req.Destination)
	if err != nil {
		return nil, fmt.Errorf("generate options: resolve destination: %w", err)
	}

	// Tariff gaps surface before any routing work.
	tariff, err := g.tariffs.ActiveTariff(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate options: %w", err)
	}
	band, err := SelectBand(tariff, req.Cargo)
	if err != nil {
		return nil, fmt.Errorf("generate options: %w", err)
	}

	var deposits []domain.Deposit
	if g.deposits != nil {
		deposits, err = g.deposits.ListDeposits(ctx)
		if err != nil {
			return nil, fmt.Errorf("generate options: list deposits: %w", err)
		}
	}

	start := domain.Waypoint{Point: origin, Label: labelFor(req.Origin, "origin")}
	end := domain.Waypoint{Point: destination, Label: labelFor(req.Destination, "destination")}
	candidates := g.candidates(start, end, deposits)

	metrics, pairErrs, err := g.resolvePairs(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("generate options: %w", err)
	}

	generatedAt := g.now().UTC()
	options := make([]domain.RouteOption, 0, len(candidates))
	for _, c := range candidates {
		opt, ok := buildOption(c, metrics, band)
		if !ok {
			continue
		}

		q, err := Quote(tariff, req.Cargo, opt.TotalDistanceKm, nil)
		if err != nil {
			return nil, fmt.Errorf("generate options: %w", err)
		}
		opt.ID = uuid.NewString()
		opt.TariffID = tariff.ID
		opt.Cargo = req.Cargo
		opt.TotalCost = q.Total
		opt.GeneratedAt = generatedAt
		options = append(options, opt)
	}

	if len(options) == 0 {
		return nil, fmt.Errorf("%w: %d candidate chains, last error: %v",
			domain.ErrNoRouteFound, len(candidates), errors.Join(pairErrs...))
	}

	RankOptions(options)

	// Unsaved options could never be selected.
	if g.store != nil {
		if err := g.store.SaveOptions(ctx, options); err != nil {
			return nil, fmt.Errorf("generate options: save: %w", err)
		}
	}

	return options, nil
}

func labelFor(loc domain.Location, fallback string) string {
	if loc.Point == nil && loc.Address != "" {
		return normalizeAddress(loc.Address)
	}
	return fallback
}

// candidates enumerates the direct chain plus one-deposit detours within
// the budget, closest detours first.
func (g *RouteOptionGenerator) candidates(start, end domain.Waypoint, deposits []domain.Deposit) []candidate {
	out := []candidate{{stops: []domain.Waypoint{start, end}}}

	direct := HaversineKm(start.Point, end.Point)
	via := make([]candidate, 0, len(deposits))
	for _, d := range deposits {
		if d.Location == start.Point || d.Location == end.Point {
			continue
		}
		if err := d.Location.Validate(); err != nil {
			logger.Get().Warn("skipping deposit with invalid location", zap.String("deposit_id", d.ID), zap.Error(err))
			continue
		}

		detour := HaversineKm(start.Point, d.Location) + HaversineKm(d.Location, end.Point) - direct
		if detour > g.policy.DetourBudgetKm {
			continue
		}
		via = append(via, candidate{
			stops:  []domain.Waypoint{start, domain.DepositWaypoint(d), end},
			detour: detour,
		})
	}

	slices.SortStableFunc(via, func(a, b candidate) int {
		if a.detour < b.detour {
			return -1
		}
		if a.detour > b.detour {
			return 1
		}
		if a.stops[1].DepositID < b.stops[1].DepositID {
			return -1
		}
		if a.stops[1].DepositID > b.stops[1].DepositID {
			return 1
		}
		return 0
	})

	if g.policy.MaxDepositCandidates >= 0 && len(via) > g.policy.MaxDepositCandidates {
		via = via[:g.policy.MaxDepositCandidates]
	}

	return append(out, via...)
}

// resolvePairs fetches each distinct leg once with bounded concurrency.
// A failed pair only disqualifies the chains using it.
func (g *RouteOptionGenerator) resolvePairs(ctx context.Context, candidates []candidate) (map[string]LegMetrics, []error, error) {
	seen := make(map[string]struct{})
	pairs := make([]pointPair, 0)
	for _, c := range candidates {
		for i := 0; i+1 < len(c.stops); i++ {
			p := pointPair{from: c.stops[i].Point, to: c.stops[i+1].Point}
			if _, ok := seen[p.key()]; ok {
				continue
			}
			seen[p.key()] = struct{}{}
			pairs = append(pairs, p)
		}
	}

	var (
		mu      sync.Mutex
		metrics = make(map[string]LegMetrics, len(pairs))
		errs    []error
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.policy.DistanceConcurrency)

	for _, p := range pairs {
		p := p
		eg.Go(func() error {
			m, err := g.distances.Distance(egCtx, p.from, p.to)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("distance %s: %w", p.key(), err))
				return nil
			}
			metrics[p.key()] = m
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	return metrics, errs, nil
}

func buildOption(c candidate, metrics map[string]LegMetrics, band domain.TariffBand) (domain.RouteOption, bool) {
	opt := domain.RouteOption{
		Legs:                 make([]domain.LegPlan, 0, len(c.stops)-1),
		TotalDistanceKm:      decimal.Zero,
		TotalDurationMinutes: decimal.Zero,
	}

	for i := 0; i+1 < len(c.stops); i++ {
		from, to := c.stops[i], c.stops[i+1]
		m, ok := metrics[pointPair{from: from.Point, to: to.Point}.key()]
		if !ok {
			return domain.RouteOption{}, false
		}

		opt.Legs = append(opt.Legs, domain.LegPlan{
			Origin:          from,
			Destination:     to,
			DistanceKm:      m.DistanceKm,
			DurationMinutes: m.DurationMinutes,
			EstimatedCost:   m.DistanceKm.Mul(band.CostPerDistanceUnit),
			Geometry:        m.Geometry,
			Fallback:        m.Fallback,
		})
		opt.TotalDistanceKm = opt.TotalDistanceKm.Add(m.DistanceKm)
		opt.TotalDurationMinutes = opt.TotalDurationMinutes.Add(m.DurationMinutes)
		opt.Geometry = appendGeometry(opt.Geometry, m.Geometry)
	}

	return opt, true
}

// appendGeometry concatenates leg paths, dropping the repeated junction point.
func appendGeometry(acc, next orb.LineString) orb.LineString {
	if len(next) == 0 {
		return acc
	}
	if len(acc) > 0 && acc[len(acc)-1] == next[0] {
		next = next[1:]
	}
	return append(acc, next...)
}

// RankOptions sorts ascending by cost, then duration, then leg count, and
// assigns RankIndex.
func RankOptions(options []domain.RouteOption) {
	slices.SortStableFunc(options, func(a, b domain.RouteOption) int {
		if c := a.TotalCost.Cmp(b.TotalCost); c != 0 {
			return c
		}
		if c := a.TotalDurationMinutes.Cmp(b.TotalDurationMinutes); c != 0 {
			return c
		}
		return len(a.Legs) - len(b.Legs)
	})
	for i := range options {
		options[i].RankIndex = i
	}
}
