package domain

import (
	"slices"

	"github.com/shopspring/decimal"
)

// TariffBand maps an inclusive (volume, weight) range to a per-km rate.
type TariffBand struct {
	VolumeMin           decimal.Decimal `json:"volume_min"`
	VolumeMax           decimal.Decimal `json:"volume_max"`
	WeightMin           decimal.Decimal `json:"weight_min"`
	WeightMax           decimal.Decimal `json:"weight_max"`
	CostPerDistanceUnit decimal.Decimal `json:"cost_per_distance_unit"`
}

// Contains reports whether both bounds of the band include the cargo.
func (b TariffBand) Contains(c Cargo) bool {
	return c.Volume.GreaterThanOrEqual(b.VolumeMin) &&
		c.Volume.LessThanOrEqual(b.VolumeMax) &&
		c.Weight.GreaterThanOrEqual(b.WeightMin) &&
		c.Weight.LessThanOrEqual(b.WeightMax)
}

// Tariff is maintained by an administrative collaborator and only read here.
type Tariff struct {
	ID                 string          `json:"id"`
	FixedManagementFee decimal.Decimal `json:"fixed_management_fee"`
	FuelUnitPrice      decimal.Decimal `json:"fuel_unit_price"`
	Bands              []TariffBand    `json:"bands"`
}

// OrderedBands returns a copy of the bands in tie-break order:
// ascending VolumeMin, then ascending WeightMin. The sort is stable so
// bands with identical minimums keep their stored order.
func (t *Tariff) OrderedBands() []TariffBand {
	bands := slices.Clone(t.Bands)
	slices.SortStableFunc(bands, func(a, b TariffBand) int {
		if c := a.VolumeMin.Cmp(b.VolumeMin); c != 0 {
			return c
		}
		return a.WeightMin.Cmp(b.WeightMin)
	})
	return bands
}
