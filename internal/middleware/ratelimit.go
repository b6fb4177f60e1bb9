package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter allows limit hits per key in each fixed window. Expired
// buckets are swept once per window until Close.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]bucket

	stop     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	hits    int
	resetAt time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return NewRateLimiterWithNow(limit, window, time.Now)
}

func NewRateLimiterWithNow(limit int, window time.Duration, now func() time.Time) *RateLimiter {
	rl := &RateLimiter{
		limit:   limit,
		window:  window,
		now:     now,
		buckets: make(map[string]bucket),
		stop:    make(chan struct{}),
	}
	if window > 0 {
		go rl.sweep()
	}
	return rl
}

func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.dropExpired()
		}
	}
}

func (rl *RateLimiter) dropExpired() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, b := range rl.buckets {
		if now.After(b.resetAt) {
			delete(rl.buckets, key)
		}
	}
}

// Allow records a hit for key. When the key is over its limit it reports
// false and the time left until its window resets.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok || now.After(b.resetAt) {
		rl.buckets[key] = bucket{hits: 1, resetAt: now.Add(rl.window)}
		return true, 0
	}
	if b.hits >= rl.limit {
		return false, b.resetAt.Sub(now)
	}
	b.hits++
	rl.buckets[key] = b
	return true, 0
}

// RateLimitMiddleware limits per client IP.
func RateLimitMiddleware(rl *RateLimiter) gin.HandlerFunc {
	return RateLimitBy(rl, func(c *gin.Context) string { return c.ClientIP() })
}

// RateLimitBy limits on the key returned by keyFn.
func RateLimitBy(rl *RateLimiter, keyFn func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retry := rl.Allow(keyFn(c))
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please wait a moment."})
			c.Abort()
			return
		}
		c.Next()
	}
}
