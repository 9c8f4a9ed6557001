package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/scholarsphere/internal/app/models/dto"
)

// Limiter decides whether key may make another request in the window
type Limiter interface {
	Allow(key string, limit int, window time.Duration) bool
}

// MemoryLimiter is a fixed-window limiter for single-instance deployments and tests
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket
}

type rateBucket struct {
	count     int
	windowEnd time.Time
}

// NewMemoryLimiter creates an in-process limiter
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]*rateBucket)}
}

// Allow implements Limiter
func (r *MemoryLimiter) Allow(key string, limit int, window time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	bucket, ok := r.buckets[key]
	if !ok || now.After(bucket.windowEnd) {
		r.buckets[key] = &rateBucket{count: 1, windowEnd: now.Add(window)}
		return true
	}
	if bucket.count >= limit {
		return false
	}
	bucket.count++
	return true
}

// KeyFunc derives the limiter key from a request; empty skips limiting
type KeyFunc func(c *gin.Context) string

// ByIP keys requests by scope and client address
func ByIP(scope string) KeyFunc {
	return func(c *gin.Context) string {
		return "rl:" + scope + ":ip:" + c.ClientIP()
	}
}

// ByUser keys requests by scope and authenticated user, falling back to IP
func ByUser(scope string) KeyFunc {
	return func(c *gin.Context) string {
		if id, ok := CurrentUserID(c); ok {
			return "rl:" + scope + ":user:" + strconv.FormatInt(id, 10)
		}
		return ByIP(scope)(c)
	}
}

// RateLimit rejects requests over limit per window with 429. A nil limiter disables it.
func RateLimit(limiter Limiter, keyFn KeyFunc, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}
		key := keyFn(c)
		if key == "" || limiter.Allow(key, limit, window) {
			c.Next()
			return
		}
		c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
		c.AbortWithStatusJSON(http.StatusTooManyRequests,
			dto.NewErrorResponse(dto.NewErrorDetail(dto.ErrorCodeRateLimited, "Too many requests, try again later")))
	}
}
