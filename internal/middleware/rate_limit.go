package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yourorg/index-compare/internal/utils"
)

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	clients map[string]*client
	swept   time.Time
	mu      sync.Mutex
	now     func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerMinute with the given burst
func NewRateLimiter(requestsPerMinute, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:   burst,
		ttl:     10 * time.Minute,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

// Allow reports whether a request from clientIP may proceed
func (r *RateLimiter) Allow(clientIP string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	c, exists := r.clients[clientIP]
	if !exists {
		c = &client{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.clients[clientIP] = c
	}
	c.lastSeen = now

	if now.Sub(r.swept) > r.ttl {
		for ip, other := range r.clients {
			if now.Sub(other.lastSeen) > r.ttl {
				delete(r.clients, ip)
			}
		}
		r.swept = now
	}

	return c.limiter.AllowN(now, 1)
}

// RateLimit creates middleware for rate limiting requests.
// A non-positive requestsPerMinute disables limiting.
func RateLimit(requestsPerMinute, burst int) gin.HandlerFunc {
	if requestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := NewRateLimiter(requestsPerMinute, burst)

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			utils.AbortWithError(c, http.StatusTooManyRequests, "Rate limit exceeded. Try again later.")
			return
		}
		c.Next()
	}
}
