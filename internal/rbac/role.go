// Package rbac holds the role model of the tracker: resolving a role from an
// email address, the static role to permission table, and the query service
// every access decision goes through.
package rbac

import "strings"

type Role string

const (
	RoleSuperAdmin  Role = "SUPERADMIN"
	RoleCoordinator Role = "COORDINATOR"
	RoleStudent     Role = "STUDENT"
)

// Roles lists the closed role enumeration.
var Roles = []Role{RoleSuperAdmin, RoleCoordinator, RoleStudent}

func (r Role) String() string { return string(r) }

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleCoordinator, RoleStudent:
		return true
	}
	return false
}

// RequiresVerification reports whether accounts with this role must verify
// their email with a one-time code before a password login completes.
func (r Role) RequiresVerification() bool { return r == RoleStudent }

// OTPEligible reports whether the role may request one-time codes.
func (r Role) OTPEligible() bool { return r == RoleStudent }

// ParseRole accepts any casing and returns ok=false for unknown values.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Principal is anything that carries a role, usually *models.User.
type Principal interface {
	PrincipalRole() Role
}
