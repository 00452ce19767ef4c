package rbac

import (
	"sort"
	"strings"
)

type Permission string

const (
	PermManageSystem          Permission = "MANAGE_SYSTEM"
	PermViewSystemLogs        Permission = "VIEW_SYSTEM_LOGS"
	PermManageUsers           Permission = "MANAGE_USERS"
	PermManageInterns         Permission = "MANAGE_INTERNS"
	PermViewReports           Permission = "VIEW_REPORTS"
	PermGenerateTrainingPlans Permission = "GENERATE_TRAINING_PLANS"
	PermChatWithStudents      Permission = "CHAT_WITH_STUDENTS"
	PermSubmitLogs            Permission = "SUBMIT_LOGS"
	PermViewOwnProgress       Permission = "VIEW_OWN_PROGRESS"
	PermChatWithCoordinator   Permission = "CHAT_WITH_COORDINATOR"
)

// ManagementPermissions are the capabilities that act on other accounts or
// on the system. STUDENT never holds any of them.
var ManagementPermissions = []Permission{
	PermManageSystem,
	PermViewSystemLogs,
	PermManageUsers,
	PermManageInterns,
	PermViewReports,
	PermGenerateTrainingPlans,
}

var coordinatorPermissions = []Permission{
	PermManageInterns,
	PermViewReports,
	PermGenerateTrainingPlans,
	PermChatWithStudents,
}

var permissionTable = map[Role][]Permission{
	RoleSuperAdmin: append([]Permission{
		PermManageSystem,
		PermViewSystemLogs,
		PermManageUsers,
	}, coordinatorPermissions...),
	RoleCoordinator: coordinatorPermissions,
	RoleStudent: {
		PermSubmitLogs,
		PermViewOwnProgress,
		PermChatWithCoordinator,
	},
}

// PermissionSet is an immutable-by-convention set of permissions.
type PermissionSet map[Permission]struct{}

func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Sorted returns the members in lexical order.
func (s PermissionSet) Sorted() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PermissionsFor returns a fresh copy of the role's set. Unknown roles get an
// empty set: no access.
func PermissionsFor(role Role) PermissionSet {
	perms := permissionTable[role]
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// ParsePermission accepts any casing and returns ok=false for tags outside
// the table.
func ParsePermission(s string) (Permission, bool) {
	p := Permission(strings.ToUpper(strings.TrimSpace(s)))
	for _, perms := range permissionTable {
		for _, known := range perms {
			if known == p {
				return p, true
			}
		}
	}
	return p, false
}
