package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-gateway/internal/ratelimit"
)

// RateLimitMiddleware throttles requests per client IP. A limiter that
// fails lets the request through.
func RateLimitMiddleware(limiter ratelimit.Limiter, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), "ip:"+c.ClientIP())
		if err != nil {
			logger.Warn().Err(err).Msg("rate limiter unavailable")
			allowed = true
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "too many requests"})
			return
		}
		c.Next()
	}
}
