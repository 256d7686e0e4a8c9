package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPrincipal struct {
	role   Role
	perms  []Permission
	groups []Group
}

func (s stubPrincipal) PrincipalRole() Role             { return s.role }
func (s stubPrincipal) DirectPermissions() []Permission { return s.perms }
func (s stubPrincipal) PermissionGroups() []Group       { return s.groups }

func TestPermissionsForRole(t *testing.T) {
	admin := PermissionsForRole(RoleAdmin)
	assert.Contains(t, admin, PermUserCreate)
	assert.Contains(t, admin, PermSystemLogs)
	assert.NotContains(t, admin, PermUserDelete)
	assert.NotContains(t, admin, PermSystemConfig)

	moderator := PermissionsForRole(RoleModerator)
	assert.Contains(t, moderator, PermMemberUpdate)
	assert.NotContains(t, moderator, PermMemberCreate)

	user := PermissionsForRole(RoleUser)
	assert.ElementsMatch(t, []Permission{PermMemberRead, PermStatsView}, user)

	// Mutating the returned slice must not leak into the table.
	admin[0] = Permission("tampered")
	again := PermissionsForRole(RoleAdmin)
	assert.NotContains(t, again, Permission("tampered"))
}

func TestPermissionsForRoleSuperAdmin(t *testing.T) {
	require.ElementsMatch(t, AllPermissions(), PermissionsForRole(RoleSuperAdmin))
}

func TestHasPermissionNilPrincipal(t *testing.T) {
	assert.False(t, HasPermission(nil, PermUserRead))
	assert.False(t, HasAllPermissions(nil, []Permission{PermUserRead}))
	assert.False(t, HasAnyPermission(nil, []Permission{PermUserRead}))
}

func TestHasPermissionSuperAdminOverride(t *testing.T) {
	p := stubPrincipal{role: RoleSuperAdmin}
	for _, perm := range AllPermissions() {
		assert.True(t, HasPermission(p, perm), "super admin should hold %s", perm)
	}
}

func TestHasPermissionDirect(t *testing.T) {
	p := stubPrincipal{role: RoleUser, perms: []Permission{PermStatsView}}
	assert.True(t, HasPermission(p, PermStatsView))
	assert.False(t, HasPermission(p, PermStatsExport))
}

func TestHasPermissionThroughGroup(t *testing.T) {
	p := stubPrincipal{
		role: RoleUser,
		groups: []Group{
			{ID: "g1", Name: "reporters", Permissions: []Permission{PermStatsExport}},
		},
	}
	assert.True(t, HasPermission(p, PermStatsExport))
	assert.False(t, HasPermission(p, PermSystemBackup))
}

func TestHasAllPermissions(t *testing.T) {
	p := stubPrincipal{role: RoleUser, perms: []Permission{PermStatsView, PermMemberRead}}
	assert.True(t, HasAllPermissions(p, []Permission{PermStatsView, PermMemberRead}))
	assert.False(t, HasAllPermissions(p, []Permission{PermStatsView, PermUserDelete}))
	// An empty requirement list is vacuously satisfied.
	assert.True(t, HasAllPermissions(p, nil))
}

func TestHasAnyPermission(t *testing.T) {
	p := stubPrincipal{role: RoleUser, perms: []Permission{PermStatsView}}
	assert.True(t, HasAnyPermission(p, []Permission{PermUserDelete, PermStatsView}))
	assert.False(t, HasAnyPermission(p, []Permission{PermUserDelete, PermSystemConfig}))
	// An empty candidate list can never be satisfied.
	assert.False(t, HasAnyPermission(p, nil))
}
