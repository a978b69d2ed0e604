package domain

import "time"

// Role enumerates user roles. RoleSystem is a synthetic author role used
// for sweep-generated issue updates and is never assigned to an account.
type Role string

const (
	RoleStudent   Role = "STUDENT"
	RoleStaff     Role = "STAFF"
	RoleHoD       Role = "HOD"
	RoleWarden    Role = "WARDEN"
	RoleAdmin     Role = "ADMIN"
	RolePrincipal Role = "PRINCIPAL"
	RoleSystem    Role = "SYSTEM"
)

// IsStaff reports whether the role belongs to a staff member.
func (r Role) IsStaff() bool {
	switch r {
	case RoleStaff, RoleHoD, RoleWarden, RoleAdmin, RolePrincipal:
		return true
	}
	return false
}

// User is the domain model for account holders.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	Department   *string
	PasswordHash string
	CreatedAt    time.Time
}
