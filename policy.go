package auth

// Policy decides whether a resolved principal may proceed. Failures carry
// the authorization category so the HTTP boundary renders them as 403,
// while an unauthenticated principal always fails with 401 semantics.
type Policy interface {
	Allow(p Principal) error
}

// PolicyFunc adapts a function into a Policy.
type PolicyFunc func(p Principal) error

// Allow satisfies the Policy interface.
func (f PolicyFunc) Allow(p Principal) error {
	return f(p)
}

// RequireRole is satisfied when the principal's resolved role equals or
// dominates min in the fixed role order. Unassigned roles never satisfy it.
func RequireRole(min Role) Policy {
	return PolicyFunc(func(p Principal) error {
		if !p.Authenticated() {
			return ErrUnauthenticated
		}

		if !p.Role.IsAtLeast(min) {
			return ErrForbidden.Clone().WithMetadata(map[string]any{
				"required_role": string(min),
				"resolved_role": p.Role.String(),
			})
		}

		return nil
	})
}

// RequireScheme is satisfied purely by which authenticator validated the
// request, independent of role.
func RequireScheme(scheme Scheme) Policy {
	return PolicyFunc(func(p Principal) error {
		if !p.Authenticated() {
			return ErrUnauthenticated
		}

		if p.Scheme != scheme {
			return ErrForbidden.Clone().WithMetadata(map[string]any{
				"required_scheme": scheme.String(),
				"actual_scheme":   p.Scheme.String(),
			})
		}

		return nil
	})
}

// AllOf combines policies by conjunction; the first failure wins.
func AllOf(policies ...Policy) Policy {
	return PolicyFunc(func(p Principal) error {
		for _, policy := range policies {
			if policy == nil {
				continue
			}
			if err := policy.Allow(p); err != nil {
				return err
			}
		}
		return nil
	})
}
