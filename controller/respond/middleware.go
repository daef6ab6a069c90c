package respond

import (
	"strconv"
	"sync"
	"time"

	"meta-anchor/metrics"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// TimingMiddleware records the request start for the envelope's processingTime
func TimingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(startTimeKey, time.Now())
		c.Next()
	}
}

// MetricsMiddleware observes request latency per route
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// RateLimiter per client IP token buckets
type RateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*clientLimiter
	idle     time.Duration
	now      func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per client with an equal burst
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
		limiters: make(map[string]*clientLimiter),
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

// Allow consumes one token for key
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cl, ok := l.limiters[key]
	if !ok {
		l.evict(now)
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// evict drops clients idle longer than l.idle; caller holds mu
func (l *RateLimiter) evict(now time.Time) {
	for key, cl := range l.limiters {
		if now.Sub(cl.lastSeen) > l.idle {
			delete(l.limiters, key)
		}
	}
}

// Middleware rejects with 429 once a client is over its limit.
// A limit of zero or less disables limiting.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.burst <= 0 {
			c.Next()
			return
		}
		if !l.Allow(c.ClientIP()) {
			TooManyRequests(c)
			return
		}
		c.Next()
	}
}
