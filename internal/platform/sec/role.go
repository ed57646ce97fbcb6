// Copyright (c) 2026 Optica. All rights reserved.

package sec

// # User Roles

// Role represents the authorization level granted to an account.
type Role string

const (
	// Unrestricted system access, including user management
	RoleAdmin Role = "admin"

	// Can browse the audit journal and the user directory
	RoleStaff Role = "staff"

	// Default role for standard registered users
	RoleUser Role = "user"
)

// Valid reports whether the role is one of the closed set of known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleUser:
		return true
	}
	return false
}

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r Role) AtLeast(target Role) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r Role) level() int {

	// Linear scale (10-30) allows for future intermediate roles
	switch r {
	case RoleAdmin:
		return 30
	case RoleStaff:
		return 20
	case RoleUser:
		return 10
	default:
		return 0
	}
}
