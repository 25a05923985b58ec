package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = 5000
	minRetryAfter     = 1
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a process-local token bucket per client. Buckets idle for
// longer than ten minutes are swept every few thousand lookups.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	key   func(*gin.Context) string
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	lookups int
}

// NewRateLimiter builds a limiter keyed by ClientID. burst is at least 1.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   max(1, burst),
		key:     ClientID,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Sweep before lookup so an expired bucket for key is replaced too.
	if rl.lookups++; rl.lookups >= limiterSweepEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= limiterIdleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lookups = 0
	}
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// retryAfter is the whole seconds until one token is available again.
func (rl *RateLimiter) retryAfter() int {
	if rl.rps <= 0 {
		return minRetryAfter
	}
	return max(minRetryAfter, int(math.Ceil(1/float64(rl.rps))))
}

// Handler rejects requests over the limit with 429 and Retry-After.
// Idempotent replays pass without spending a token.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if flag(c, ctxKeyRateBypass) {
			c.Next()
			return
		}
		if rl.limiterFor(rl.key(c)).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", strconv.Itoa(rl.retryAfter()))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       "too_many_requests",
			"message":    "rate limit exceeded",
		})
	}
}
