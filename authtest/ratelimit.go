package authtest

import (
	"fmt"
	"sync"
	"time"
)

// rateVerdict is what the limiter knows after a check or a recorded failure.
type rateVerdict struct {
	limited     bool
	remaining   int
	lockedUntil time.Time
}

// rateLimiter is a fixed-window failure counter per scope+identity with a
// lockout once the budget is spent, the in-memory rendering of the backend's
// per-user action limits. Successful attempts reset the window.
type rateLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	lockout time.Duration
	buckets map[string]*rateBucket
}

type rateBucket struct {
	windowStart time.Time
	failures    int
	lockedUntil time.Time
}

func newRateLimiter(max int, window, lockout time.Duration) *rateLimiter {
	return &rateLimiter{
		max:     max,
		window:  window,
		lockout: lockout,
		buckets: make(map[string]*rateBucket),
	}
}

func rateKey(scope, identity string) string {
	return fmt.Sprintf("%s:%s", scope, identity)
}

// check reports whether the identity is currently locked out. An expired
// lockout clears the bucket so the next window starts fresh.
func (l *rateLimiter) check(scope, identity string, now time.Time) rateVerdict {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := rateKey(scope, identity)
	bucket, ok := l.buckets[key]
	if !ok {
		return rateVerdict{remaining: l.max}
	}

	if !bucket.lockedUntil.IsZero() {
		if now.Before(bucket.lockedUntil) {
			return rateVerdict{limited: true, lockedUntil: bucket.lockedUntil}
		}
		delete(l.buckets, key)
		return rateVerdict{remaining: l.max}
	}

	if now.Sub(bucket.windowStart) > l.window {
		delete(l.buckets, key)
		return rateVerdict{remaining: l.max}
	}

	return rateVerdict{remaining: l.max - bucket.failures}
}

// recordFailure counts one failed attempt. Spending the last attempt of the
// window trips the lockout and the verdict comes back limited.
func (l *rateLimiter) recordFailure(scope, identity string, now time.Time) rateVerdict {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := rateKey(scope, identity)
	bucket, ok := l.buckets[key]
	if !ok || now.Sub(bucket.windowStart) > l.window || (!bucket.lockedUntil.IsZero() && !now.Before(bucket.lockedUntil)) {
		bucket = &rateBucket{windowStart: now}
		l.buckets[key] = bucket
	}

	if !bucket.lockedUntil.IsZero() && now.Before(bucket.lockedUntil) {
		return rateVerdict{limited: true, lockedUntil: bucket.lockedUntil}
	}

	bucket.failures++
	remaining := l.max - bucket.failures
	if remaining <= 0 {
		bucket.lockedUntil = now.Add(l.lockout)
		return rateVerdict{limited: true, lockedUntil: bucket.lockedUntil}
	}

	return rateVerdict{remaining: remaining}
}

// reset clears the identity's window after a successful attempt.
func (l *rateLimiter) reset(scope, identity string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, rateKey(scope, identity))
}
