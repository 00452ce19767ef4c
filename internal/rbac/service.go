package rbac

// Service answers access questions. All role checks in the application go
// through it rather than comparing role strings directly.
type Service struct {
	resolver *Resolver
}

func NewService(resolver *Resolver) *Service {
	if resolver == nil {
		resolver = DefaultResolver()
	}
	return &Service{resolver: resolver}
}

func (s *Service) Resolver() *Resolver { return s.resolver }

func (s *Service) ResolveRole(email string) Role { return s.resolver.ResolveRole(email) }

// HasPermission is false for a nil principal.
func (s *Service) HasPermission(p Principal, perm Permission) bool {
	if p == nil {
		return false
	}
	return PermissionsFor(p.PrincipalRole()).Has(perm)
}

// HasRole is false for a nil principal or an empty role list.
func (s *Service) HasRole(p Principal, roles ...Role) bool {
	if p == nil {
		return false
	}
	role := p.PrincipalRole()
	if role == "" {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (s *Service) PermissionsFor(role Role) PermissionSet { return PermissionsFor(role) }
