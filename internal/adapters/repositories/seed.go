package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"cargo-route-service/internal/domain"
)

// NetworkSeed is the reference data the core only reads: the deposit
// network, the carrier fleet and the active tariff.
type NetworkSeed struct {
	Tariff   domain.Tariff    `json:"tariff"`
	Deposits []domain.Deposit `json:"deposits"`
	Carriers []domain.Carrier `json:"carriers"`
}

// Seeder is implemented by every store that can load a NetworkSeed.
type Seeder interface {
	Seed(ctx context.Context, s NetworkSeed) error
}

// LoadSeed reads and validates a NetworkSeed from a JSON file.
func LoadSeed(path string) (NetworkSeed, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return NetworkSeed{}, fmt.Errorf("load seed: read %q: %w", path, err)
	}

	var s NetworkSeed
	if err := json.Unmarshal(bytes, &s); err != nil {
		return NetworkSeed{}, fmt.Errorf("load seed: parse json: %w", err)
	}

	if err := s.Validate(); err != nil {
		return NetworkSeed{}, fmt.Errorf("load seed: %w", err)
	}
	return s, nil
}

// Validate checks ids and coordinates before anything is written.
func (s *NetworkSeed) Validate() error {
	if strings.TrimSpace(s.Tariff.ID) == "" {
		return fmt.Errorf("tariff id cannot be empty")
	}
	if len(s.Tariff.Bands) == 0 {
		return fmt.Errorf("tariff %s has no bands", s.Tariff.ID)
	}
	for i, b := range s.Tariff.Bands {
		if b.VolumeMin.GreaterThan(b.VolumeMax) || b.WeightMin.GreaterThan(b.WeightMax) {
			return fmt.Errorf("tariff band at index %d: min exceeds max", i)
		}
	}

	for i, d := range s.Deposits {
		if strings.TrimSpace(d.ID) == "" {
			return fmt.Errorf("deposit at index %d: id cannot be empty", i)
		}
		if err := d.Location.Validate(); err != nil {
			return fmt.Errorf("deposit %s: %w", d.ID, err)
		}
	}

	for i, c := range s.Carriers {
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("carrier at index %d: id cannot be empty", i)
		}
	}

	return nil
}
