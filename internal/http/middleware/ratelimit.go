// README: IP-keyed rate limiting middleware.
package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"berline/internal/http/handlers"
	"berline/internal/ratelimit"
)

// RateLimit throttles by client IP. A limiter backend failure fails open:
// a broken Redis must degrade the throttle, not the whole chat.
func RateLimit(limiter ratelimit.Limiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, err := limiter.Check(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Warn("rate limiter check failed", zap.Error(err))
			c.Next()
			return
		}
		if !decision.Allowed {
			handlers.WriteRateLimited(c, int(decision.RetryAfter.Seconds()))
			return
		}
		c.Next()
	}
}
