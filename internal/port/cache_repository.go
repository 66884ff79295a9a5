package port

import (
	"context"

	"github.com/driftndash/storefront/internal/core/domain"
)

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// DeleteIdempotency frees a claimed key so the request may be retried.
	DeleteIdempotency(ctx context.Context, key string) error

	// GetShippingOptions returns cached reference data; nil slice on miss.
	GetShippingOptions(ctx context.Context) ([]domain.ShippingOption, error)

	// SetShippingOptions caches reference data with a TTL.
	SetShippingOptions(ctx context.Context, opts []domain.ShippingOption) error
}
