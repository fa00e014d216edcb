package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RateLimiter applies a fixed-window per-client request limit.
type RateLimiter struct {
	clients map[string]*clientWindow
	mu      sync.Mutex
	logger  *logrus.Logger
	limit   int
	window  time.Duration
}

type clientWindow struct {
	count     int
	windowEnd time.Time
}

// NewRateLimiter creates a new rate limiter allowing limit requests per window
func NewRateLimiter(limit int, window time.Duration, logger *logrus.Logger) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientWindow),
		logger:  logger,
		limit:   limit,
		window:  window,
	}

	go rl.cleanup()

	return rl
}

// Middleware returns a gin middleware handler
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if !rl.allow(clientIP) {
			rl.logger.WithFields(logrus.Fields{
				"client_ip":  clientIP,
				"request_id": GetRequestID(c),
				"path":       c.Request.URL.Path,
			}).Warn("Rate limit exceeded")

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": rl.window.Seconds(),
			})
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) allow(clientIP string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	client, exists := rl.clients[clientIP]
	if !exists || now.After(client.windowEnd) {
		rl.clients[clientIP] = &clientWindow{count: 1, windowEnd: now.Add(rl.window)}
		return true
	}

	if client.count >= rl.limit {
		return false
	}

	client.count++
	return true
}

// cleanup periodically drops expired client windows
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		rl.mu.Lock()
		for ip, client := range rl.clients {
			if now.After(client.windowEnd) {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}
