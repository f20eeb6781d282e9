package access

import (
	"testing"

	"github.com/gulfevents/backoffice/internal/models"
)

func TestCanAccess(t *testing.T) {
	tests := []struct {
		name    string
		role    models.Role
		allowed []models.Role
		want    bool
	}{
		{"member of set", models.RoleManager, []models.Role{models.RoleAdmin, models.RoleManager}, true},
		{"not member of set", models.RoleStaff, []models.Role{models.RoleAdmin}, false},
		{"admin only", models.RoleAdmin, []models.Role{models.RoleAdmin}, true},
		{"unknown role denied", models.Role("superuser"), []models.Role{models.RoleAdmin, models.RoleManager, models.RoleStaff}, false},
		{"empty role denied", models.Role(""), []models.Role{models.RoleStaff}, false},
		{"empty set allows any known role", models.RoleStaff, nil, true},
		{"empty set still denies unknown role", models.Role("root"), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccess(tt.role, tt.allowed...); got != tt.want {
				t.Fatalf("CanAccess(%q, %v) = %v, want %v", tt.role, tt.allowed, got, tt.want)
			}
		})
	}
}

func TestIsPrivileged(t *testing.T) {
	if !IsPrivileged(models.RoleAdmin) {
		t.Fatal("admin should be privileged")
	}
	for _, r := range []models.Role{models.RoleManager, models.RoleStaff, models.Role("unknown")} {
		if IsPrivileged(r) {
			t.Fatalf("%q should not be privileged", r)
		}
	}
}

func TestRegionFilter(t *testing.T) {
	if f := RegionFilter(models.RoleAdmin, models.RegionSaudi); f != nil {
		t.Fatalf("admin should see all regions, got filter %v", *f)
	}
	f := RegionFilter(models.RoleManager, models.RegionSaudi)
	if f == nil || *f != models.RegionSaudi {
		t.Fatalf("manager should be scoped to own region, got %v", f)
	}
	f = RegionFilter(models.RoleStaff, models.RegionUAE)
	if f == nil || *f != models.RegionUAE {
		t.Fatalf("staff should be scoped to own region, got %v", f)
	}
}
