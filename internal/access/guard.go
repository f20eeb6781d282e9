// Package access holds the pure role/region authorization rules. Every
// route guard and mutation check in the service goes through these
// functions; they perform no I/O so policy stays trivially testable.
package access

import "github.com/gulfevents/backoffice/internal/models"

// CanAccess reports whether role may access a resource restricted to the
// allowed roles. An unrecognized role is denied for every non-empty set:
// the guard fails closed, never open.
func CanAccess(role models.Role, allowed ...models.Role) bool {
	if len(allowed) == 0 {
		return role.Valid()
	}
	if !role.Valid() {
		return false
	}
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// IsPrivileged reports whether role bypasses region scoping.
func IsPrivileged(role models.Role) bool {
	return role == models.RoleAdmin
}

// RegionFilter returns the region a listing must be restricted to, or nil
// when the role may see all regions.
func RegionFilter(role models.Role, region models.Region) *models.Region {
	if IsPrivileged(role) {
		return nil
	}
	return &region
}
