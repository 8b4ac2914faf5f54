// Package access decides whether verified session claims may perform an operation.
package access

import (
	"errors"
	"strings"

	"github.com/bissquit/resettlement-portal/internal/domain"
)

// Authentication and authorization errors.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient permissions")
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("token expired")
)

// RoleSet is an explicit allow-set of roles.
type RoleSet uint8

// NewRoleSet builds a set from the given roles. Invalid roles are ignored.
func NewRoleSet(roles ...domain.Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		s |= bit(r)
	}
	return s
}

// Contains reports whether role is a member of the set.
func (s RoleSet) Contains(role domain.Role) bool {
	b := bit(role)
	return b != 0 && s&b != 0
}

// Roles returns the members of the set in declaration order.
func (s RoleSet) Roles() []domain.Role {
	roles := make([]domain.Role, 0, len(domain.Roles))
	for _, r := range domain.Roles {
		if s.Contains(r) {
			roles = append(roles, r)
		}
	}
	return roles
}

// String returns the members joined with commas.
func (s RoleSet) String() string {
	names := make([]string, 0, len(domain.Roles))
	for _, r := range s.Roles() {
		names = append(names, r.String())
	}
	return strings.Join(names, ",")
}

func bit(role domain.Role) RoleSet {
	switch role {
	case domain.RoleAdmin:
		return 1 << 0
	case domain.RoleManager:
		return 1 << 1
	case domain.RoleAnalyst:
		return 1 << 2
	case domain.RoleUser:
		return 1 << 3
	}
	return 0
}

// Authorize checks claims against allowed.
// It returns ErrUnauthenticated when there are no claims and ErrForbidden
// when the role is not listed in allowed.
func Authorize(claims *domain.Claims, allowed RoleSet) error {
	if claims == nil {
		return ErrUnauthenticated
	}
	if !allowed.Contains(claims.Role) {
		return ErrForbidden
	}
	return nil
}

// Allowed is the boolean form of Authorize.
func Allowed(claims *domain.Claims, allowed RoleSet) bool {
	return Authorize(claims, allowed) == nil
}
