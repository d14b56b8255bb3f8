package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var principalCtxKey = &contextKey{"principal"}

type contextKey struct {
	name string
}

// WithPrincipal sets the Principal in the given context. The authentication
// boundary calls this exactly once per request.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// PrincipalFromContext finds the principal in the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	raw, ok := ctx.Value(principalCtxKey).(Principal)
	return raw, ok
}

// PrincipalFromRouter extracts the Principal from the router context.
func PrincipalFromRouter(ctx router.Context, key string) (Principal, bool) {
	if key == "" {
		key = "principal"
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return Principal{}, false
	}
	p, ok := raw.(Principal)
	return p, ok
}

// Allowed is a convenience check of a policy against the context principal.
func Allowed(ctx context.Context, policy Policy) bool {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return false
	}
	return policy.Allow(p) == nil
}
