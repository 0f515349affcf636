package cache

import (
	"context"
	"time"

	"catatkas/backend/internal/domain"
)

// RevenueCache memoizes dashboard aggregation results per date range. A sync
// invalidates the whole namespace because any range may overlap the freshly
// replaced one.
type RevenueCache interface {
	GetStats(ctx context.Context, key string) (*domain.RevenueStats, bool, error)
	SetStats(ctx context.Context, key string, value *domain.RevenueStats, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopRevenueCache struct{}

func (NoopRevenueCache) GetStats(_ context.Context, _ string) (*domain.RevenueStats, bool, error) {
	return nil, false, nil
}

func (NoopRevenueCache) SetStats(_ context.Context, _ string, _ *domain.RevenueStats, _ time.Duration) error {
	return nil
}

func (NoopRevenueCache) Invalidate(_ context.Context) error {
	return nil
}
