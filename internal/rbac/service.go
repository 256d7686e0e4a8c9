package rbac

// rolePermissions is the static role table. The super-admin entry exists
// for completeness; HasPermission short-circuits on the role and does not
// consult the table for super admins.
var rolePermissions = map[Role][]Permission{
	RoleSuperAdmin: AllPermissions(),
	RoleAdmin: {
		PermUserCreate, PermUserRead, PermUserUpdate,
		PermMemberCreate, PermMemberRead, PermMemberUpdate, PermMemberDelete,
		PermStatsView, PermStatsExport,
		PermSystemLogs,
	},
	RoleModerator: {
		PermUserRead,
		PermMemberRead, PermMemberUpdate,
		PermStatsView,
	},
	RoleUser: {
		PermMemberRead,
		PermStatsView,
	},
}

// PermissionsForRole returns a copy of the default permission set for a role.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// HasPermission reports whether the principal holds the permission, either
// directly or through one of its groups. A nil principal never holds any
// permission; a super admin holds every permission unconditionally.
func HasPermission(p Principal, perm Permission) bool {
	if p == nil {
		return false
	}
	if p.PrincipalRole() == RoleSuperAdmin {
		return true
	}
	for _, granted := range p.DirectPermissions() {
		if granted == perm {
			return true
		}
	}
	for _, group := range p.PermissionGroups() {
		for _, granted := range group.Permissions {
			if granted == perm {
				return true
			}
		}
	}
	return false
}

// HasAllPermissions reports whether the principal holds every listed
// permission. An empty list is vacuously satisfied.
func HasAllPermissions(p Principal, perms []Permission) bool {
	for _, perm := range perms {
		if !HasPermission(p, perm) {
			return false
		}
	}
	return true
}

// HasAnyPermission reports whether the principal holds at least one of the
// listed permissions. An empty list is never satisfied.
func HasAnyPermission(p Principal, perms []Permission) bool {
	for _, perm := range perms {
		if HasPermission(p, perm) {
			return true
		}
	}
	return false
}
