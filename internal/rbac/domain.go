// Package rbac implements the guild's role and permission model.
//
// Roles and permissions form fixed, closed enumerations. Permissions are
// granted through the static role table, through per-user grants, or
// through membership in a permission group.
package rbac

import "time"

// Role is one of the fixed account roles.
type Role string

// Account roles, from most to least privileged.
const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleModerator  Role = "moderator"
	RoleUser       Role = "user"
)

// Valid reports whether the role belongs to the enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleModerator, RoleUser:
		return true
	}
	return false
}

// Permission is an atomic capability tag, grouped by resource prefix.
type Permission string

const (
	PermUserCreate Permission = "user:create"
	PermUserRead   Permission = "user:read"
	PermUserUpdate Permission = "user:update"
	PermUserDelete Permission = "user:delete"

	PermMemberCreate Permission = "member:create"
	PermMemberRead   Permission = "member:read"
	PermMemberUpdate Permission = "member:update"
	PermMemberDelete Permission = "member:delete"

	PermSystemConfig Permission = "system:config"
	PermSystemLogs   Permission = "system:logs"
	PermSystemBackup Permission = "system:backup"

	PermStatsView   Permission = "stats:view"
	PermStatsExport Permission = "stats:export"
)

// AllPermissions returns the full permission enumeration in declaration order.
func AllPermissions() []Permission {
	return []Permission{
		PermUserCreate, PermUserRead, PermUserUpdate, PermUserDelete,
		PermMemberCreate, PermMemberRead, PermMemberUpdate, PermMemberDelete,
		PermSystemConfig, PermSystemLogs, PermSystemBackup,
		PermStatsView, PermStatsExport,
	}
}

// Group is a named permission set a user can belong to.
type Group struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Principal describes the authenticated actor for permission checks.
type Principal interface {
	PrincipalRole() Role
	DirectPermissions() []Permission
	PermissionGroups() []Group
}

// RoleLabels carries the display label per role.
var RoleLabels = map[Role]string{
	RoleSuperAdmin: "Super Administrator",
	RoleAdmin:      "Administrator",
	RoleModerator:  "Moderator",
	RoleUser:       "Member",
}
