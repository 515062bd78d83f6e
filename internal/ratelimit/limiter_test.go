package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/travel-auth/internal/config"
	"github.com/spec-kit/travel-auth/internal/persistence"
)

func newTestLimiter(t *testing.T, window time.Duration, max int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	conn := persistence.NewConnectionManager(config.RedisConfig{
		Addr:           mr.Addr(),
		DialTimeout:    time.Second,
		CommandTimeout: time.Second,
	}, zap.NewNop())
	t.Cleanup(func() { conn.Disconnect() })

	return NewLimiter(conn, window, max), mr
}

func TestFixedWindowQuota(t *testing.T) {
	limiter, mr := newTestLimiter(t, time.Minute, 3)
	ctx := context.Background()

	wantRemaining := []int{2, 1, 0}
	for i, want := range wantRemaining {
		result, err := limiter.CheckAndIncrement(ctx, "ip1")
		if err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
		if !result.Allowed {
			t.Fatalf("call %d denied within quota", i+1)
		}
		if result.Remaining != want {
			t.Fatalf("call %d remaining = %d, want %d", i+1, result.Remaining, want)
		}
	}

	result, err := limiter.CheckAndIncrement(ctx, "ip1")
	if err != nil {
		t.Fatalf("4th call: %v", err)
	}
	if result.Allowed || result.Remaining != 0 {
		t.Fatalf("4th call = %+v, want denied with 0 remaining", result)
	}
	if result.ResetAt.IsZero() {
		t.Fatal("denied result missing reset time")
	}

	// The window elapses and the counter expires with it.
	mr.FastForward(61 * time.Second)
	result, err = limiter.CheckAndIncrement(ctx, "ip1")
	if err != nil {
		t.Fatalf("call after window: %v", err)
	}
	if !result.Allowed || result.Remaining != 2 {
		t.Fatalf("after window = %+v, want fresh quota", result)
	}
}

func TestIdentifiersAreIsolated(t *testing.T) {
	limiter, mr := newTestLimiter(t, time.Minute, 1)
	ctx := context.Background()

	if result, _ := limiter.CheckAndIncrement(ctx, "ip1"); !result.Allowed {
		t.Fatal("first ip1 call denied")
	}
	if result, _ := limiter.CheckAndIncrement(ctx, "ip1"); result.Allowed {
		t.Fatal("second ip1 call allowed over quota")
	}
	if result, _ := limiter.CheckAndIncrement(ctx, "ip2"); !result.Allowed {
		t.Fatal("ip2 should have its own window")
	}
	if !mr.Exists("rate_limit:ip1") || !mr.Exists("rate_limit:ip2") {
		t.Fatalf("expected namespaced counters, have %v", mr.Keys())
	}
}

// The check, increment and TTL read are separate round trips, so a burst of
// concurrent callers may overshoot the max slightly. This pins the tolerated
// behavior: no errors, and at least the quota is admitted.
func TestConcurrentCallersMayOvershootSlightly(t *testing.T) {
	limiter, _ := newTestLimiter(t, time.Minute, 10)

	const n = 40
	var wg sync.WaitGroup
	allowed := make(chan bool, n)
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := limiter.CheckAndIncrement(context.Background(), "burst")
			if err != nil {
				errs <- err
				return
			}
			allowed <- result.Allowed
		}()
	}
	wg.Wait()
	close(allowed)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent call failed: %v", err)
	}

	admitted := 0
	for ok := range allowed {
		if ok {
			admitted++
		}
	}
	if admitted < 10 {
		t.Fatalf("admitted %d requests, want at least the quota of 10", admitted)
	}
}
