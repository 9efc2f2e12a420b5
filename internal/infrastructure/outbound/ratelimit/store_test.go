package ratelimit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sophialabs/declarecheck/internal/infrastructure/outbound/ratelimit"
	"github.com/sophialabs/declarecheck/internal/testutil"
)

func newStore(t *testing.T, limit ratelimit.Limit, ttl time.Duration) (*ratelimit.TokenBucketStore, *testutil.FixedClock) {
	t.Helper()
	clk := &testutil.FixedClock{T: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := ratelimit.NewTokenBucketStore(limit, ttl, clk)
	t.Cleanup(store.Stop)
	return store, clk
}

func TestTokenBucketStore_AllowWithinBurst(t *testing.T) {
	store, _ := newStore(t, ratelimit.Limit{Rate: 1, Burst: 3}, time.Minute)
	ctx := context.Background()

	for i := range 3 {
		if !store.Allow(ctx, "10.0.0.1") {
			t.Errorf("check %d should be allowed within burst", i+1)
		}
	}
	if store.Allow(ctx, "10.0.0.1") {
		t.Error("check over burst should be denied")
	}
}

func TestTokenBucketStore_Refill(t *testing.T) {
	store, clk := newStore(t, ratelimit.Limit{Rate: 2, Burst: 1}, time.Minute)
	ctx := context.Background()

	store.Allow(ctx, "10.0.0.1")
	if store.Allow(ctx, "10.0.0.1") {
		t.Fatal("expected the bucket to be empty")
	}

	clk.Advance(600 * time.Millisecond)
	if !store.Allow(ctx, "10.0.0.1") {
		t.Error("expected a token after 600ms at 2/s")
	}
}

func TestTokenBucketStore_PerClientIsolation(t *testing.T) {
	store, _ := newStore(t, ratelimit.Limit{Rate: 1, Burst: 2}, time.Minute)
	ctx := context.Background()

	for range 2 {
		store.Allow(ctx, "10.0.0.1")
	}
	if !store.Allow(ctx, "10.0.0.2") {
		t.Error("a second client must have its own bucket")
	}
}

func TestTokenBucketStore_ZeroRateDisablesLimiting(t *testing.T) {
	store, _ := newStore(t, ratelimit.Limit{}, time.Minute)
	ctx := context.Background()

	for range 100 {
		if !store.Allow(ctx, "10.0.0.1") {
			t.Fatal("expected unlimited checks with rate 0")
		}
	}
	if store.Len() != 0 {
		t.Errorf("expected no bucket while limiting is disabled, got %d", store.Len())
	}
}

func TestTokenBucketStore_Evict(t *testing.T) {
	store, clk := newStore(t, ratelimit.Limit{Rate: 1, Burst: 1}, time.Minute)
	ctx := context.Background()

	store.Allow(ctx, "idle")
	clk.Advance(30 * time.Second)
	store.Allow(ctx, "recent")
	clk.Advance(45 * time.Second)
	store.Evict()

	if store.Len() != 1 {
		t.Errorf("expected only the recent client to remain, got %d", store.Len())
	}
}

func TestTokenBucketStore_SetLimit(t *testing.T) {
	store, clk := newStore(t, ratelimit.Limit{Rate: 1, Burst: 1}, time.Minute)
	ctx := context.Background()

	store.Allow(ctx, "10.0.0.1")
	if store.Allow(ctx, "10.0.0.1") {
		t.Fatal("expected the bucket to be empty")
	}

	// A raised rate refills the existing bucket faster.
	store.SetLimit(ratelimit.Limit{Rate: 10, Burst: 1})
	clk.Advance(150 * time.Millisecond)
	if !store.Allow(ctx, "10.0.0.1") {
		t.Error("expected a token after the rate increase")
	}
	if got := store.Limit(); got.Rate != 10 || got.Burst != 1 {
		t.Errorf("unexpected limit %+v", got)
	}

	store.SetLimit(ratelimit.Limit{})
	if store.Len() != 0 || !store.Allow(ctx, "10.0.0.1") {
		t.Error("disabling the limit must drop buckets and allow every check")
	}
}

func TestTokenBucketStore_Concurrent(t *testing.T) {
	store, _ := newStore(t, ratelimit.Limit{Rate: 100, Burst: 100}, time.Minute)
	ctx := context.Background()
	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Allow(ctx, "10.0.0.1")
		}()
	}

	wg.Wait()

	if store.Len() != 1 {
		t.Errorf("expected 1 bucket, got %d", store.Len())
	}
}

func TestTokenBucketStore_StopTwice(t *testing.T) {
	store, _ := newStore(t, ratelimit.Limit{Rate: 1, Burst: 1}, time.Minute)
	store.Stop()
	store.Stop()
}
