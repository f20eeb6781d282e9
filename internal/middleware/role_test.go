package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gulfevents/backoffice/internal/auth"
	"github.com/gulfevents/backoffice/internal/models"
)

func routerWithRole(role models.Role, allowed ...models.Role) (*gin.Engine, *bool) {
	gin.SetMode(gin.TestMode)
	reached := false
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(auth.ContextClaims, &auth.Claims{
			UserID: uuid.New(),
			Role:   role,
			Region: models.RegionUAE,
		})
		c.Set(ContextUserRole, role)
	})
	r.GET("/guarded", RequireRole(allowed...), func(c *gin.Context) {
		reached = true
		c.Status(http.StatusOK)
	})
	return r, &reached
}

func TestRequireRoleAllowsListedRole(t *testing.T) {
	r, reached := routerWithRole(models.RoleManager, models.RoleAdmin, models.RoleManager)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	if w.Code != http.StatusOK || !*reached {
		t.Fatalf("manager should pass, got %d reached=%v", w.Code, *reached)
	}
}

func TestRequireRoleBlocksBeforeHandler(t *testing.T) {
	r, reached := routerWithRole(models.RoleStaff, models.RoleAdmin)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("staff must be denied, got %d", w.Code)
	}
	if *reached {
		t.Fatal("handler must not run after a denied guard")
	}
}

func TestRequireRoleFailsClosedOnUnknownRole(t *testing.T) {
	r, reached := routerWithRole(models.Role("superuser"), models.RoleAdmin, models.RoleManager, models.RoleStaff)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	if w.Code != http.StatusForbidden || *reached {
		t.Fatalf("unknown role must be denied, got %d reached=%v", w.Code, *reached)
	}
}
