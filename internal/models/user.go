package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an authenticated caller (parent, teacher, or admin).
// Account lifecycle is owned by the auth collaborator; this subsystem only
// reads the row it exposes.
type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	ProviderID    *string   `json:"provider_id,omitempty"`
	Name          *string   `json:"name,omitempty"`
	Role          Role      `json:"role"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user may manage templates and global stats.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
