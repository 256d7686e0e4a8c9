// Package users holds the guild account records and the in-memory directory.
package users

import (
	"time"

	"github.com/snowfall-guild/guilddesk/internal/rbac"
)

// User represents a guild account.
type User struct {
	ID                    string            `json:"id"`
	Username              string            `json:"username"`
	Email                 string            `json:"email,omitempty"`
	Role                  rbac.Role         `json:"role"`
	Groups                []rbac.Group      `json:"groups"`
	Permissions           []rbac.Permission `json:"permissions"`
	DefaultPassword       bool              `json:"isDefaultPassword"`
	RequirePasswordChange bool              `json:"requirePasswordChange"`
	PasswordHash          string            `json:"-"`
	LastLoginAt           *time.Time        `json:"lastLoginAt,omitempty"`
	CreatedAt             time.Time         `json:"createdAt"`
	UpdatedAt             time.Time         `json:"updatedAt"`
	CreatedBy             string            `json:"createdBy,omitempty"`
}

// PrincipalRole implements rbac.Principal.
func (u *User) PrincipalRole() rbac.Role {
	if u == nil {
		return ""
	}
	return u.Role
}

// DirectPermissions implements rbac.Principal.
func (u *User) DirectPermissions() []rbac.Permission {
	if u == nil {
		return nil
	}
	return u.Permissions
}

// PermissionGroups implements rbac.Principal.
func (u *User) PermissionGroups() []rbac.Group {
	if u == nil {
		return nil
	}
	return u.Groups
}

var _ rbac.Principal = (*User)(nil)
