package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"igpicker/pkg/config"
	"igpicker/pkg/logger"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit returns per-IP token-bucket middleware. Entries unused for an
// hour are evicted every five minutes until stop is closed.
func RateLimit(cfg config.ServerConfig, stop <-chan struct{}) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*limiterEntry)

	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	getLimiter := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		entry, ok := limiters[ip]
		if !ok {
			entry = &limiterEntry{limiter: rate.NewLimiter(limit, burst)}
			limiters[ip] = entry
		}
		entry.lastSeen = time.Now()
		return entry.limiter
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cutoff := time.Now().Add(-time.Hour)
				mu.Lock()
				for ip, entry := range limiters {
					if entry.lastSeen.Before(cutoff) {
						delete(limiters, ip)
					}
				}
				mu.Unlock()
			case <-stop:
				return
			}
		}
	}()

	return func(c *gin.Context) {
		if !getLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "rate limit exceeded, please slow down",
				Type:  "rate_limit",
			})
			return
		}
		c.Next()
	}
}

// RequestLogger logs every request through log once it has been served
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		ms := float64(time.Since(start).Microseconds()) / 1000
		logger.LogRequest(log, c.Request.Method, path, c.Writer.Status(), ms, c.ClientIP())
		for _, e := range c.Errors {
			log.WithError(e.Err).WithField("path", path).Warn("Request error")
		}
	}
}
