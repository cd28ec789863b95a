package domain

import (
	"strings"
	"time"
)

// Role is the authorization level the backend assigns to an account.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// NormalizeRole maps empty or unknown roles to RoleUser.
func NormalizeRole(r Role) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(string(r)))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleSuperAdmin:
		return RoleSuperAdmin
	default:
		return RoleUser
	}
}

// User is the profile record of the authenticated principal.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Role           Role      `json:"role"`
	EmailVerified  bool      `json:"emailVerified"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	Disabled       bool      `json:"disabled,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Clone returns a copy safe to hand out as a read-only view.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
