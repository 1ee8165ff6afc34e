package models

import "fmt"

// Role is the closed set of user roles.
type Role string

const (
	RoleUser        Role = "user"
	RoleAdmin       Role = "admin"
	RoleCMS         Role = "cms"
	RoleSyncService Role = "sync-service"
)

// Roles lists every valid role.
var Roles = []Role{RoleUser, RoleAdmin, RoleCMS, RoleSyncService}

// Valid reports whether r is a member of the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleCMS, RoleSyncService:
		return true
	default:
		return false
	}
}

// ParseRole converts a stored or claimed string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role: %q", s)
	}
	return r, nil
}
