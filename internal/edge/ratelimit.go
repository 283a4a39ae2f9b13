package edge

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/PratikDhanave/intake-edge/internal/apperr"
)

// PerMinute builds a token bucket allowing n events per minute with a burst
// of n/10 (at least 1).
func PerMinute(n int) *rate.Limiter {
	burst := n / 10
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), burst)
}

// RateLimit rejects requests with 429 once lim is exhausted.
func RateLimit(lim *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !lim.Allow() {
			Fail(c, apperr.New(apperr.CodeRateLimited, "too many requests, try again shortly"))
			return
		}
		c.Next()
	}
}
