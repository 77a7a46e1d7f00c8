// Package cache is a thin Redis accelerator sitting in front of the
// document store: it lets a burst of concurrent requests for the same
// query term collapse into a single cold resolution instead of each one
// independently fetching from the retailers and re-persisting the same
// result. Waiting requests still read the document store themselves once
// the claim is released.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Accelerator claims an exclusive right to cold-resolve a query term for a
// short window, so concurrent duplicates can wait on the claim instead of
// racing it.
type Accelerator struct {
	redis *redis.Client
	ttl   time.Duration
}

// New builds an Accelerator. ttl bounds how long a claim is held if the
// claimant crashes or never calls Release.
func New(client *redis.Client, ttl time.Duration) *Accelerator {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &Accelerator{redis: client, ttl: ttl}
}

func claimKey(term string) string {
	return "resolving:" + term
}

// Claim attempts to become the sole in-flight resolver for term. true means
// the caller won and must resolve cold; false means another resolution is
// already in flight.
func (a *Accelerator) Claim(ctx context.Context, term string) (bool, error) {
	ok, err := a.redis.SetNX(ctx, claimKey(term), "1", a.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Release gives up the claim early, once the cold resolution has persisted
// its result, so waiters don't sit out the full TTL.
func (a *Accelerator) Release(ctx context.Context, term string) error {
	return a.redis.Del(ctx, claimKey(term)).Err()
}

// WaitForRelease blocks, polling at interval, until the claim on term is
// released or maxWait elapses. It returns nil in both cases — the caller
// re-checks the document store afterwards regardless of why it returned,
// since the accelerator is an optimization, not a correctness guarantee.
func (a *Accelerator) WaitForRelease(ctx context.Context, term string, maxWait, interval time.Duration) error {
	deadline := time.Now().Add(maxWait)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			held, err := a.redis.Exists(ctx, claimKey(term)).Result()
			if err != nil {
				return err
			}
			if held == 0 {
				return nil
			}
		}
	}
	return nil
}

// Close closes the underlying Redis client.
func (a *Accelerator) Close() error {
	return a.redis.Close()
}
