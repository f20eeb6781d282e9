package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the durable per-user record holding role and region.
type Profile struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Password      string    `json:"-"`
	FullName      string    `json:"full_name"`
	Role          Role      `json:"role"`
	Region        Region    `json:"region"`
	ContactNumber string    `json:"contact_number"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProfilePublic is Profile without sensitive fields for API responses.
type ProfilePublic struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	Role          Role      `json:"role"`
	Region        Region    `json:"region"`
	ContactNumber string    `json:"contact_number"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToPublic converts Profile to ProfilePublic.
func (p *Profile) ToPublic() ProfilePublic {
	return ProfilePublic{
		ID:            p.ID,
		Email:         p.Email,
		FullName:      p.FullName,
		Role:          p.Role,
		Region:        p.Region,
		ContactNumber: p.ContactNumber,
		CreatedAt:     p.CreatedAt,
	}
}

// AuthenticatedUser is the merge of session identity and profile attributes
// published by the auth hydrator. It is replaced wholesale on every
// re-hydration and nil after logout.
type AuthenticatedUser struct {
	ID     uuid.UUID `json:"id"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
	Region Region    `json:"region"`
	Token  string    `json:"-"`
}
