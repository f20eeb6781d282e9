package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/gulfevents/backoffice/internal/access"
	"github.com/gulfevents/backoffice/internal/models"
	"github.com/gulfevents/backoffice/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles.
// Denials abort before the handler runs, so no repository call is ever
// issued for a rejected request. Unknown roles are rejected outright.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, ok := c.Get(ContextUserRole)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		role, _ := roleVal.(models.Role)
		if !access.CanAccess(role, roles...) {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}
