package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gulfevents/backoffice/internal/auth"
	"github.com/gulfevents/backoffice/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserRegion is the key for user region in gin context.
	ContextUserRegion = "user_region"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// RevocationChecker reports whether a session ID has been revoked.
type RevocationChecker interface {
	Revoked(ctx context.Context, sessionID string) bool
}

// JWT returns a middleware that validates the bearer token, rejects
// revoked sessions, and sets the user claims in context.
func JWT(jwtService *auth.JWTService, revocation RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		if revocation != nil && revocation.Revoked(c.Request.Context(), claims.ID) {
			response.Unauthorized(c, "session revoked")
			c.Abort()
			return
		}
		c.Set(auth.ContextClaims, claims)
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextUserRegion, claims.Region)
		c.Set(ContextUserEmail, claims.Email)
		c.Next()
	}
}
