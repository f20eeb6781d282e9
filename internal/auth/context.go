package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/gulfevents/backoffice/internal/models"
)

// ContextClaims is the gin context key under which the JWT middleware
// stores the validated *Claims.
const ContextClaims = "auth_claims"

// ClaimsFrom returns the validated claims for the request, or nil when the
// route is not behind the JWT middleware.
func ClaimsFrom(c *gin.Context) *Claims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// ActorFrom builds the audit actor for the request from its claims.
func ActorFrom(c *gin.Context) *models.AuthenticatedUser {
	claims := ClaimsFrom(c)
	if claims == nil {
		return nil
	}
	return &models.AuthenticatedUser{
		ID:     claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
		Region: claims.Region,
	}
}
