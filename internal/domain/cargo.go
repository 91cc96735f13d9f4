package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Represents the goods moved by a single shipment.
// Weight and volume are expressed in the tariff's units (kg, m³).
type Cargo struct {
	Weight decimal.Decimal `json:"weight"`
	Volume decimal.Decimal `json:"volume"`
}

func NewCargo(weight, volume float64) Cargo {
	return Cargo{
		Weight: decimal.NewFromFloat(weight),
		Volume: decimal.NewFromFloat(volume),
	}
}

// Validate rejects negative or all-zero cargo.
func (c Cargo) Validate() error {
	if c.Weight.IsNegative() || c.Volume.IsNegative() {
		return fmt.Errorf("%w: weight and volume must not be negative", ErrInvalidCargo)
	}
	if c.Weight.IsZero() && c.Volume.IsZero() {
		return fmt.Errorf("%w: weight or volume must be positive", ErrInvalidCargo)
	}
	return nil
}
