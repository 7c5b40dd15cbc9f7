package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"llmrelay/internal/pkg/errors"
)

// RateLimiter is a token bucket store keyed by caller identity. Buckets
// refill continuously at limit per minute.
type RateLimiter struct {
	store *sync.Map // map[string]*Bucket
}

type Bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
	mu         sync.Mutex
}

func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{store: &sync.Map{}}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		rl.store.Range(func(key, value interface{}) bool {
			bucket := value.(*Bucket)
			bucket.mu.Lock()
			if now.Sub(bucket.lastAccess) > 10*time.Minute {
				rl.store.Delete(key)
			}
			bucket.mu.Unlock()
			return true
		})
	}
}

func (rl *RateLimiter) Allow(key string, limit int) bool {
	now := time.Now()

	val, _ := rl.store.LoadOrStore(key, &Bucket{
		tokens:     limit,
		lastRefill: now,
		lastAccess: now,
	})

	bucket := val.(*Bucket)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	bucket.lastAccess = now

	elapsed := now.Sub(bucket.lastRefill)
	refillRate := float64(limit) / 60.0
	refillTokens := int(elapsed.Seconds() * refillRate)

	if refillTokens > 0 {
		if bucket.tokens+refillTokens > limit {
			bucket.tokens = limit
		} else {
			bucket.tokens += refillTokens
		}
		bucket.lastRefill = now
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}
	return false
}

// Limit wraps a handler with a per-caller token bucket. The key function
// picks the bucket identity: access-key id on the completion surface, JWT
// subject on the management surface, remote address when anonymous.
func (rl *RateLimiter) Limit(scope string, limit int, keyFn func(r *http.Request) string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("%s:%s", scope, keyFn(r))
			if !rl.Allow(key, limit) {
				w.Header().Set("Retry-After", "60")
				errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimited, "Rate limit exceeded", nil)
				return
			}
			next(w, r)
		}
	}
}

// KeyByAccessKey buckets by the authenticated access key, falling back to
// the remote address on the off chance the middleware ordering changes.
func KeyByAccessKey(r *http.Request) string {
	if id, ok := IdentityFrom(r.Context()); ok {
		return id.KeyID
	}
	return r.RemoteAddr
}

// KeyByRemoteAddr buckets anonymous callers by source address.
func KeyByRemoteAddr(r *http.Request) string {
	return r.RemoteAddr
}
