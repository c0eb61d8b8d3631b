package domain

import (
	"fmt"
	"strings"
)

// Role is the access level carried in a bearer token.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleOperator Role = "OPERATOR"
	RoleViewer   Role = "VIEWER"
)

// CanWriteTickets reports whether the role may change tickets.
func (r Role) CanWriteTickets() bool {
	return r == RoleAdmin || r == RoleOperator
}

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleViewer:
		return true
	}
	return false
}

// ParseRole converts user input into a Role.
func ParseRole(val string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(val)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, val)
	}
	return r, nil
}
