package middleware

import (
	"net/http"
	"sync"
	"time"

	"riverwatch/pkg/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type rateClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter tracks one token bucket per client IP. Idle entries are
// evicted so the map stays bounded on a long-running server.
type RateLimiter struct {
	clients  map[string]*rateClient
	mu       sync.Mutex
	requests int
	window   time.Duration
}

// NewRateLimiter creates a limiter allowing `requests` per `window` per IP
// and starts the background sweep of idle clients.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients:  make(map[string]*rateClient),
		requests: requests,
		window:   window,
	}
	go rl.sweep()
	return rl
}

// GetLimiter returns the rate limiter for the given IP, creating one on
// first sight and refreshing its last-seen time.
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	client, exists := rl.clients[ip]
	if !exists {
		perSecond := float64(rl.requests) / rl.window.Seconds()
		client = &rateClient{limiter: rate.NewLimiter(rate.Limit(perSecond), rl.requests)}
		rl.clients[ip] = client
	}
	client.lastSeen = time.Now()

	return client.limiter
}

// evictIdle drops clients that have not been seen within the given duration.
func (rl *RateLimiter) evictIdle(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	for ip, client := range rl.clients {
		if client.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for range ticker.C {
		rl.evictIdle(3 * rl.window)
	}
}

// Middleware returns the gin rate limiting middleware
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.GetLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				response.Error(http.StatusTooManyRequests, "请求过于频繁，请稍后再试"))
			return
		}
		c.Next()
	}
}
