package cache

import (
	"context"
	"testing"
	"time"

	"invoicebook/backend/internal/domain"
)

func TestNoopDistributorCacheAlwaysMisses(t *testing.T) {
	c := NoopDistributorCache{}
	ctx := context.Background()

	if err := c.Set(ctx, &domain.Distributor{ID: "dist-1"}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := c.Get(ctx, "dist-1")
	if err != nil || ok || got != nil {
		t.Fatalf("expected miss, got %v %v %v", got, ok, err)
	}
}

func TestDistributorKeyIsNamespaced(t *testing.T) {
	if got := distributorKey("dist-9"); got != "invoicebook:distributor:dist-9" {
		t.Fatalf("unexpected key %q", got)
	}
}
