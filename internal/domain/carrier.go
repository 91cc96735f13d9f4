package domain

import "github.com/shopspring/decimal"

// Carrier is a truck (or any vehicle) that can be assigned to legs.
// Available is shared mutable state; it is only flipped inside a
// store transaction that holds the carrier row lock.
type Carrier struct {
	ID                  string          `json:"id"`
	Plate               string          `json:"plate"`
	MaxWeight           decimal.Decimal `json:"max_weight"`
	MaxVolume           decimal.Decimal `json:"max_volume"`
	CostBase            decimal.Decimal `json:"cost_base"`
	CostPerDistanceUnit decimal.Decimal `json:"cost_per_distance_unit"`
	FuelConsumptionRate decimal.Decimal `json:"fuel_consumption_rate"`
	Available           bool            `json:"available"`
}

// CanCarry reports whether the cargo fits within both capacity limits.
func (c *Carrier) CanCarry(cargo Cargo) bool {
	return c.MaxWeight.GreaterThanOrEqual(cargo.Weight) && c.MaxVolume.GreaterThanOrEqual(cargo.Volume)
}

// CostFor is the carrier's own cost model for a leg of the given length.
func (c *Carrier) CostFor(distanceKm decimal.Decimal) decimal.Decimal {
	return c.CostBase.Add(distanceKm.Mul(c.CostPerDistanceUnit))
}
