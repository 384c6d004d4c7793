package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

// Limiter is a keyed token bucket.
type Limiter interface {
	Allow(key string) bool
}

// RateLimit throttles requests per caller. The key is the user id when EnsureUser ran, the
// client IP otherwise.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		key := "ip:" + c.ClientIP()
		if u, ok := CurrentUser(c); ok {
			key = "user:" + u.ID
		}
		if !limiter.Allow(key) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, platformerrors.HTTPErrorResponse{
				Error: &platformerrors.HTTPErrorDetail{
					Message:   "rate limit exceeded",
					Type:      "rate_limit_error",
					RequestID: RequestIDFromContext(c),
				},
			})
			return
		}
		c.Next()
	}
}
