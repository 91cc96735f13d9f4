package services

import (
	"context"
	"errors"
	"fmt"

	"cargo-route-service/internal/domain"
	"cargo-route-service/internal/platform/obs"
	"cargo-route-service/internal/ports"

	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

// PriceQuote is the breakdown of a tariff price.
type PriceQuote struct {
	TariffID      string            `json:"tariff_id"`
	Band          domain.TariffBand `json:"band"`
	DistanceKm    decimal.Decimal   `json:"distance_km"`
	ManagementFee decimal.Decimal   `json:"management_fee"`
	DistanceCost  decimal.Decimal   `json:"distance_cost"`
	FuelCost      decimal.Decimal   `json:"fuel_cost"`
	Total         decimal.Decimal   `json:"total"`
}

// SelectBand returns the first band, in tie-break order, that contains
// the cargo.
func SelectBand(tariff *domain.Tariff, cargo domain.Cargo) (domain.TariffBand, error) {
	if tariff == nil {
		return domain.TariffBand{}, fmt.Errorf("%w: no tariff configured", domain.ErrNoApplicableTariffBand)
	}
	for _, b := range tariff.OrderedBands() {
		if b.Contains(cargo) {
			return b, nil
		}
	}
	return domain.TariffBand{}, fmt.Errorf(
		"%w: weight=%s volume=%s tariff=%s",
		domain.ErrNoApplicableTariffBand, cargo.Weight, cargo.Volume, tariff.ID,
	)
}

// Quote prices a distance for the cargo. fuelRate is the carrier's fuel
// consumption per distance unit; nil leaves fuel out of the total.
func Quote(tariff *domain.Tariff, cargo domain.Cargo, distanceKm decimal.Decimal, fuelRate *decimal.Decimal) (PriceQuote, error) {
	if distanceKm.IsNegative() {
		return PriceQuote{}, fmt.Errorf("quote: distance must not be negative, got %s", distanceKm)
	}

	band, err := SelectBand(tariff, cargo)
	if err != nil {
		return PriceQuote{}, err
	}

	q := PriceQuote{
		TariffID:      tariff.ID,
		Band:          band,
		DistanceKm:    distanceKm,
		ManagementFee: tariff.FixedManagementFee,
		DistanceCost:  distanceKm.Mul(band.CostPerDistanceUnit),
		FuelCost:      decimal.Zero,
	}
	if fuelRate != nil {
		q.FuelCost = distanceKm.Mul(*fuelRate).Mul(tariff.FuelUnitPrice)
	}
	q.Total = q.ManagementFee.Add(q.DistanceCost).Add(q.FuelCost).Round(moneyPlaces)

	return q, nil
}

// TariffEngine prices cargo against the currently active tariff.
type TariffEngine struct {
	tariffs  ports.TariffRepository
	carriers ports.CarrierRepository
}

func NewTariffEngine(tariffs ports.TariffRepository, carriers ports.CarrierRepository) *TariffEngine {
	return &TariffEngine{tariffs: tariffs, carriers: carriers}
}

// ActiveTariff exposes the tariff used for planning.
func (e *TariffEngine) ActiveTariff(ctx context.Context) (*domain.Tariff, error) {
	t, err := e.tariffs.ActiveTariff(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no active tariff", domain.ErrNoApplicableTariffBand)
		}
		return nil, fmt.Errorf("load active tariff: %w", err)
	}
	return t, nil
}

// EstimatePrice prices without any carrier-specific fuel component.
func (e *TariffEngine) EstimatePrice(ctx context.Context, cargo domain.Cargo, distanceKm decimal.Decimal) (_ PriceQuote, err error) {
	defer obs.Time(ctx, "tariff.EstimatePrice")(&err)

	if err := cargo.Validate(); err != nil {
		return PriceQuote{}, err
	}
	t, err := e.ActiveTariff(ctx)
	if err != nil {
		return PriceQuote{}, err
	}
	return Quote(t, cargo, distanceKm, nil)
}

// RealPrice adds the fuel cost of a specific carrier.
func (e *TariffEngine) RealPrice(ctx context.Context, cargo domain.Cargo, distanceKm decimal.Decimal, carrierID string) (_ PriceQuote, err error) {
	defer obs.Time(ctx, "tariff.RealPrice")(&err)

	if err := cargo.Validate(); err != nil {
		return PriceQuote{}, err
	}
	if e.carriers == nil {
		return PriceQuote{}, errors.New("real price: no carrier repository configured")
	}
	c, err := e.carriers.GetCarrier(ctx, carrierID)
	if err != nil {
		return PriceQuote{}, fmt.Errorf("real price: carrier %q: %w", carrierID, err)
	}
	t, err := e.ActiveTariff(ctx)
	if err != nil {
		return PriceQuote{}, err
	}
	rate := c.FuelConsumptionRate
	return Quote(t, cargo, distanceKm, &rate)
}
