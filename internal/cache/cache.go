package cache

import (
	"context"
	"time"

	"invoicebook/backend/internal/domain"
)

// DistributorCache holds distributor records for read paths. Misses and
// errors fall through to the Record Store; entries are dropped on write.
type DistributorCache interface {
	Get(ctx context.Context, id string) (*domain.Distributor, bool, error)
	Set(ctx context.Context, value *domain.Distributor, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type NoopDistributorCache struct{}

func (NoopDistributorCache) Get(_ context.Context, _ string) (*domain.Distributor, bool, error) {
	return nil, false, nil
}

func (NoopDistributorCache) Set(_ context.Context, _ *domain.Distributor, _ time.Duration) error {
	return nil
}

func (NoopDistributorCache) Delete(_ context.Context, _ string) error {
	return nil
}
