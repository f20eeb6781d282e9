package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded by guarded mutations.
const (
	AuditEventCreated         = "event_created"
	AuditEventStatusChanged   = "event_status_changed"
	AuditEventDeleted         = "event_deleted"
	AuditMaterialAdded        = "material_added"
	AuditPaymentStatusChanged = "payment_status_changed"
	AuditRoleChanged          = "role_changed"
	AuditRegionChanged        = "region_changed"
	AuditUserInvited          = "user_invited"
)

// AuditEntry is an immutable record of a guarded action. Append-only: entries
// are never updated or deleted.
type AuditEntry struct {
	ID          uuid.UUID  `json:"id"`
	Action      string     `json:"action"`
	Description string     `json:"description"`
	UserID      uuid.UUID  `json:"user_id"`
	UserEmail   string     `json:"user_email"`
	Role        Role       `json:"role"`
	Region      Region     `json:"region"`
	EntityID    *uuid.UUID `json:"entity_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
