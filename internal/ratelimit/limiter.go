package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/travel-auth/internal/persistence"
)

const keyPrefix = "rate_limit:"

// Result is the structured outcome of a quota check. Exceeding the quota is
// an expected condition, not an error; callers pick the HTTP status.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter enforces fixed-window request quotas per identifier.
//
// The existence check, increment and TTL read are separate Redis round trips,
// so concurrent callers can overshoot the max by a small margin. The counter
// always expires with the window, so there is no cumulative drift.
type Limiter struct {
	redis       *persistence.ConnectionManager
	window      time.Duration
	maxRequests int
	now         func() time.Time
}

// NewLimiter builds a limiter with default window and quota.
func NewLimiter(redis *persistence.ConnectionManager, window time.Duration, maxRequests int) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	if maxRequests <= 0 {
		maxRequests = 100
	}
	return &Limiter{redis: redis, window: window, maxRequests: maxRequests, now: time.Now}
}

// CheckAndIncrement applies the default window and quota.
func (l *Limiter) CheckAndIncrement(ctx context.Context, identifier string) (Result, error) {
	return l.CheckAndIncrementWith(ctx, identifier, l.window, l.maxRequests)
}

// CheckAndIncrementWith counts a request against the identifier's window.
func (l *Limiter) CheckAndIncrementWith(ctx context.Context, identifier string, window time.Duration, maxRequests int) (Result, error) {
	client, err := l.redis.Get(ctx)
	if err != nil {
		return Result{}, err
	}

	key := keyPrefix + identifier

	count, err := client.Get(ctx, key).Int()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return Result{}, err
		}
		// First hit in the window: create the counter with the window TTL.
		if err := client.Set(ctx, key, 1, window).Err(); err != nil {
			return Result{}, err
		}
		return Result{
			Allowed:   true,
			Remaining: maxRequests - 1,
			ResetAt:   l.now().Add(window),
		}, nil
	}

	if count >= maxRequests {
		resetAt, err := l.resetAt(ctx, client, key, window)
		if err != nil {
			return Result{}, err
		}
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}

	if err := client.Incr(ctx, key).Err(); err != nil {
		return Result{}, err
	}
	resetAt, err := l.resetAt(ctx, client, key, window)
	if err != nil {
		return Result{}, err
	}

	remaining := maxRequests - count - 1
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining, ResetAt: resetAt}, nil
}

func (l *Limiter) resetAt(ctx context.Context, client *redis.Client, key string, window time.Duration) (time.Time, error) {
	ttl, err := client.TTL(ctx, key).Result()
	if err != nil {
		return time.Time{}, err
	}
	if ttl < 0 {
		ttl = window
	}
	return l.now().Add(ttl), nil
}
