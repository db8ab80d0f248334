package domain

import "strings"

// UserRole separates administrators from reporting users.
type UserRole string

const (
	UserRoleAdmin UserRole = "ADMIN"
	UserRoleUser  UserRole = "USER"
)

// ParseUserRole maps stored role text to a role, defaulting to USER.
func ParseUserRole(raw string) UserRole {
	if UserRole(strings.ToUpper(strings.TrimSpace(raw))) == UserRoleAdmin {
		return UserRoleAdmin
	}
	return UserRoleUser
}

// User is a registry person who can report, be assigned or act on incidents.
type User struct {
	ID         string
	Name       string
	Email      string
	Role       UserRole
	EmployeeID string
	Department string
}

// IsAdmin reports whether the user holds the administrator role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}
