package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownRole is returned when a role name is not one of the known roles.
var ErrUnknownRole = errors.New("unknown role")

// Role is a coarse access level attached to a user.
// The zero value is not a valid role.
type Role uint8

// Known roles. There is no hierarchy between them.
const (
	RoleAdmin Role = iota + 1
	RoleManager
	RoleAnalyst
	RoleUser
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleManager, RoleAnalyst, RoleUser}

// String returns the wire name of the role.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "ADMIN"
	case RoleManager:
		return "MANAGER"
	case RoleAnalyst:
		return "ANALYST"
	case RoleUser:
		return "USER"
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleAnalyst, RoleUser:
		return true
	}
	return false
}

// ParseRole converts a wire name into a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "ADMIN":
		return RoleAdmin, nil
	case "MANAGER":
		return RoleManager, nil
	case "ANALYST":
		return RoleAnalyst, nil
	case "USER":
		return RoleUser, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Claims is the verified payload of a session token.
type Claims struct {
	TokenID   string
	SubjectID string
	Email     string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}
