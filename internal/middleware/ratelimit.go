package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/academy-portal/pkg/errors"
	"github.com/noah-isme/academy-portal/pkg/response"
)

// RateLimiter keeps one token bucket per client IP. Idle buckets expire.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	buckets *gocache.Cache
}

// NewRateLimiter allows perSecond requests per client with the given burst. A
// non-positive rate disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: gocache.New(10*time.Minute, 10*time.Minute),
	}
}

func (l *RateLimiter) bucket(key string) *rate.Limiter {
	if v, ok := l.buckets.Get(key); ok {
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(l.limit, l.burst)
	// Add fails when another request created the bucket first.
	if err := l.buckets.Add(key, limiter, gocache.DefaultExpiration); err != nil {
		if v, ok := l.buckets.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.limit <= 0 {
			c.Next()
			return
		}
		limiter := l.bucket(c.ClientIP())
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			response.Error(c, appErrors.ErrRateLimited)
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(l.burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
		c.Next()
	}
}
