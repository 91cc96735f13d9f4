package ports

import (
	"context"

	"cargo-route-service/internal/domain"
)

// Short-lived storage for generated options so callers can select by id.
type OptionStore interface {
	SaveOptions(ctx context.Context, options []domain.RouteOption) error
	// Returns domain.ErrOptionNotFound when missing or expired.
	GetOption(ctx context.Context, id string) (*domain.RouteOption, error)
}
