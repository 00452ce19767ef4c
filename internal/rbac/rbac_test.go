package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type principal struct{ role Role }

func (p *principal) PrincipalRole() Role {
	if p == nil {
		return ""
	}
	return p.role
}

func TestResolver_ResolveRole(t *testing.T) {
	r := DefaultResolver()

	tests := []struct {
		email string
		want  Role
	}{
		{"admin@superadmin.myr", RoleSuperAdmin},
		{"ADMIN@SuperAdmin.MYR", RoleSuperAdmin},
		{"  admin@superadmin.myr ", RoleSuperAdmin},
		{"jane@ojtcoord.com", RoleCoordinator},
		{"Jane@OJTCOORD.com", RoleCoordinator},
		{"student@uni.edu", RoleStudent},
		{"other@superadmin.myr", RoleStudent},
		{"x@notojtcoord.com", RoleStudent},
		{"", RoleStudent},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ResolveRole(tt.email))
		})
	}
}

func TestResolver_CaseInsensitive(t *testing.T) {
	r := NewResolver("Boss@Corp.IO", "Staff.Corp.IO")
	for _, pair := range [][2]string{
		{"boss@corp.io", "BOSS@CORP.IO"},
		{"a@staff.corp.io", "A@STAFF.CORP.IO"},
		{"A@X.com", "a@x.com"},
	} {
		assert.Equal(t, r.ResolveRole(pair[0]), r.ResolveRole(pair[1]), pair)
	}
	assert.Equal(t, RoleCoordinator, r.ResolveRole("a@staff.corp.io"))
	assert.Equal(t, RoleStudent, r.ResolveRole("a@evilstaff.corp.io"))
}

func TestResolver_IsReserved(t *testing.T) {
	r := DefaultResolver()
	assert.True(t, r.IsReserved("admin@superadmin.myr"))
	assert.True(t, r.IsReserved("who@OJTCOORD.COM"))
	assert.False(t, r.IsReserved("student@uni.edu"))
}

func TestPermissionsFor_NonEmpty(t *testing.T) {
	for _, role := range Roles {
		assert.NotEmpty(t, PermissionsFor(role), role)
	}
}

func TestPermissionsFor_StudentHasNoManagement(t *testing.T) {
	student := PermissionsFor(RoleStudent)
	for _, p := range ManagementPermissions {
		assert.False(t, student.Has(p), p)
	}
	assert.False(t, student.Has(PermChatWithStudents))
}

func TestPermissionsFor_SuperAdminCoversCoordinator(t *testing.T) {
	admin := PermissionsFor(RoleSuperAdmin)
	for p := range PermissionsFor(RoleCoordinator) {
		assert.True(t, admin.Has(p), p)
	}
	assert.True(t, admin.Has(PermManageUsers))
	assert.False(t, PermissionsFor(RoleCoordinator).Has(PermManageUsers))
}

func TestPermissionsFor_UnknownRoleIsEmpty(t *testing.T) {
	assert.Empty(t, PermissionsFor(Role("ADMIN")))
	assert.Empty(t, PermissionsFor(""))
}

func TestPermissionsFor_ReturnsCopy(t *testing.T) {
	set := PermissionsFor(RoleStudent)
	set[PermManageUsers] = struct{}{}
	assert.False(t, PermissionsFor(RoleStudent).Has(PermManageUsers))
}

func TestService_HasPermission(t *testing.T) {
	s := NewService(nil)

	assert.True(t, s.HasPermission(&principal{RoleStudent}, PermSubmitLogs))
	assert.False(t, s.HasPermission(&principal{RoleStudent}, PermManageUsers))
	assert.True(t, s.HasPermission(&principal{RoleSuperAdmin}, PermManageUsers))
	assert.False(t, s.HasPermission(&principal{Role("ROOT")}, PermManageUsers))
}

func TestService_NilPrincipal(t *testing.T) {
	s := NewService(nil)
	var typedNil *principal

	for _, role := range Roles {
		for p := range PermissionsFor(role) {
			assert.False(t, s.HasPermission(nil, p))
			assert.False(t, s.HasPermission(typedNil, p))
		}
	}
	assert.False(t, s.HasRole(nil, Roles...))
	assert.False(t, s.HasRole(typedNil, Roles...))
}

func TestService_HasRole(t *testing.T) {
	s := NewService(DefaultResolver())
	p := &principal{RoleCoordinator}

	assert.True(t, s.HasRole(p, RoleSuperAdmin, RoleCoordinator))
	assert.False(t, s.HasRole(p, RoleStudent))
	assert.False(t, s.HasRole(p))
}

func TestParseRoleAndPermission(t *testing.T) {
	r, ok := ParseRole(" coordinator ")
	require.True(t, ok)
	assert.Equal(t, RoleCoordinator, r)

	_, ok = ParseRole("admin")
	assert.False(t, ok)

	p, ok := ParsePermission("manage_users")
	require.True(t, ok)
	assert.Equal(t, PermManageUsers, p)

	_, ok = ParsePermission("fly")
	assert.False(t, ok)
}

func TestPermissionSet_Sorted(t *testing.T) {
	assert.Equal(t,
		[]Permission{PermChatWithCoordinator, PermSubmitLogs, PermViewOwnProgress},
		PermissionsFor(RoleStudent).Sorted())
}
