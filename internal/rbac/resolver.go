package rbac

import "strings"

const (
	DefaultSuperAdminEmail   = "admin@superadmin.myr"
	DefaultCoordinatorDomain = "@ojtcoord.com"
)

// Resolver derives a role from an email address. The zero value is not
// useful; use NewResolver.
type Resolver struct {
	superAdminEmail   string
	coordinatorDomain string
}

// NewResolver normalizes its inputs so comparisons are case-insensitive.
// A domain given without the leading '@' gets one, so "x.com" never matches
// "user@evilx.com".
func NewResolver(superAdminEmail, coordinatorDomain string) *Resolver {
	domain := NormalizeEmail(coordinatorDomain)
	if domain != "" && !strings.HasPrefix(domain, "@") {
		domain = "@" + domain
	}
	return &Resolver{
		superAdminEmail:   NormalizeEmail(superAdminEmail),
		coordinatorDomain: domain,
	}
}

// DefaultResolver uses the production addresses.
func DefaultResolver() *Resolver {
	return NewResolver(DefaultSuperAdminEmail, DefaultCoordinatorDomain)
}

func (r *Resolver) SuperAdminEmail() string { return r.superAdminEmail }

func (r *Resolver) CoordinatorDomain() string { return r.coordinatorDomain }

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *Resolver) ResolveRole(email string) Role {
	e := NormalizeEmail(email)
	switch {
	case r.superAdminEmail != "" && e == r.superAdminEmail:
		return RoleSuperAdmin
	case r.coordinatorDomain != "" && strings.HasSuffix(e, r.coordinatorDomain):
		return RoleCoordinator
	default:
		return RoleStudent
	}
}

// IsReserved reports whether email belongs to the superadmin address or the
// coordinator domain. Reserved emails cannot be used for public signup.
func (r *Resolver) IsReserved(email string) bool {
	return r.ResolveRole(email) != RoleStudent
}
