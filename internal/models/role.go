package models

import "strings"

// Role is the privilege tier of a back-office user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// RoleDefault is the role substituted when a profile lookup fails or the
// backing row is missing. It is the lowest-privilege role: a failed lookup
// must never grant access it would not otherwise have.
const RoleDefault = RoleStaff

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff:
		return true
	}
	return false
}

// ParseRole normalizes a role string. Unknown values return ok=false; callers
// must treat that as no access, never as a privileged default.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Region is the tenant/geography partition scoping event visibility.
type Region string

const (
	RegionUAE   Region = "uae"
	RegionSaudi Region = "saudi"
)

// RegionDefault is the region substituted on failed profile lookups.
const RegionDefault = RegionUAE

// Valid reports whether rg is a known region.
func (rg Region) Valid() bool {
	return rg == RegionUAE || rg == RegionSaudi
}

// ParseRegion accepts both the lowercase schema spelling and the uppercase
// variant used by older clients ("UAE", "SAUDI").
func ParseRegion(s string) (Region, bool) {
	rg := Region(strings.ToLower(strings.TrimSpace(s)))
	return rg, rg.Valid()
}
