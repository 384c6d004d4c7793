package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

// RequireScope aborts with 403 unless the principal carries scope. When auth is disabled every
// caller is let through.
func RequireScope(scope string, authEnabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authEnabled {
			c.Next()
			return
		}
		principal, ok := PrincipalFromContext(c)
		if !ok {
			platformerrors.WriteUnauthorized(c, "unauthenticated")
			return
		}
		if !principal.HasScope(scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, platformerrors.HTTPErrorResponse{
				Error: &platformerrors.HTTPErrorDetail{
					Message:   "missing required scope " + scope,
					Type:      "forbidden_error",
					RequestID: RequestIDFromContext(c),
				},
			})
			return
		}
		c.Next()
	}
}
