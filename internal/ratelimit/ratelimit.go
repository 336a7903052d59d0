// Package ratelimit provides a keyed token-bucket rate limiter. The desk
// endpoints use it per issuer, so one misbehaving client can't starve the
// others.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// cleanupInterval is how often idle limiters are swept.
const cleanupInterval = 10 * time.Minute

// idleTimeout is how long a key may sit unused before its limiter is dropped.
const idleTimeout = time.Hour

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter manages per-key rate limiting. Each unique key gets its own
// independent token bucket; idle keys are evicted in the background.
type KeyedLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   rate.Limit
	burst   int

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a keyed limiter allowing rps requests per second with the
// given burst per key.
func New(rps float64, burst int) *KeyedLimiter {
	kl := &KeyedLimiter{
		entries: make(map[string]*entry),
		limit:   rate.Limit(rps),
		burst:   burst,
		done:    make(chan struct{}),
	}

	go kl.cleanupLoop()

	return kl
}

// Allow reports whether a request for the given key may proceed right now.
func (kl *KeyedLimiter) Allow(key string) bool {
	return kl.get(key).Allow()
}

// Wait blocks until a request for the given key is allowed or the context
// is canceled.
func (kl *KeyedLimiter) Wait(ctx context.Context, key string) error {
	return kl.get(key).Wait(ctx)
}

// get returns the limiter for a key, creating one if needed.
func (kl *KeyedLimiter) get(key string) *rate.Limiter {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	e, ok := kl.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(kl.limit, kl.burst)}
		kl.entries[key] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

// Stop shuts down the cleanup goroutine.
func (kl *KeyedLimiter) Stop() {
	kl.stopOnce.Do(func() {
		close(kl.done)
	})
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-kl.done:
			return
		case now := <-ticker.C:
			kl.mu.Lock()
			for key, e := range kl.entries {
				if now.Sub(e.lastSeen) > idleTimeout {
					delete(kl.entries, key)
				}
			}
			kl.mu.Unlock()
		}
	}
}
