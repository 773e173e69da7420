package domain

import "time"

// Role determines what a user may do with an event queue.
type Role string

// Roles.
const (
	RoleFan       Role = "fan"
	RoleOrganizer Role = "organizer"
)

// IsValid checks if the role is valid.
func (r Role) IsValid() bool {
	return r == RoleFan || r == RoleOrganizer
}

// HasPermission reports whether the role satisfies the required minimum.
// Organizers can do everything fans can.
func (r Role) HasPermission(min Role) bool {
	if min == RoleFan {
		return r.IsValid()
	}
	return r == RoleOrganizer
}

// User represents a registered fan or organizer.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"display_name"`
	Password      string    `json:"-"`
	Role          Role      `json:"role"`
	PayoutAccount *string   `json:"payout_account,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RefreshToken is a stored refresh token for a user session.
type RefreshToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
