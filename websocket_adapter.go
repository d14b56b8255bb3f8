package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-router"
)

// wsValidateTimeout bounds claims resolution during a websocket handshake,
// which has no request context of its own.
const wsValidateTimeout = 5 * time.Second

// WSTokenValidator implements go-router's WSTokenValidator interface on top
// of the RouteGuard pipeline, so websocket upgrades get the same issuer
// dispatch and role resolution as plain HTTP requests.
type WSTokenValidator struct {
	guard *RouteGuard
}

// NewWSTokenValidator creates a websocket token validator backed by guard.
func NewWSTokenValidator(guard *RouteGuard) *WSTokenValidator {
	return &WSTokenValidator{guard: guard}
}

// Validate validates a raw token string and returns websocket-compatible
// auth claims.
func (w *WSTokenValidator) Validate(tokenString string) (router.WSAuthClaims, error) {
	ctx, cancel := context.WithTimeout(context.Background(), wsValidateTimeout)
	defer cancel()

	principal, err := w.guard.AuthenticateToken(ctx, tokenString)
	if err != nil {
		return nil, err
	}

	return &wsPrincipalClaims{principal: principal}, nil
}

// NewWSAuthMiddleware creates a websocket authentication middleware wired to
// this guard's token pipeline.
func (g *RouteGuard) NewWSAuthMiddleware(config ...router.WSAuthConfig) router.WebSocketMiddleware {
	var cfg router.WSAuthConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	cfg.TokenValidator = NewWSTokenValidator(g)

	return router.NewWSAuth(cfg)
}

// wsPrincipalClaims adapts a resolved Principal to router.WSAuthClaims.
type wsPrincipalClaims struct {
	principal Principal
}

func (w *wsPrincipalClaims) Subject() string {
	return w.principal.Subject
}

func (w *wsPrincipalClaims) UserID() string {
	return w.principal.Subject
}

func (w *wsPrincipalClaims) Role() string {
	return w.principal.Role.String()
}

// CanRead is satisfied by any assigned role.
func (w *wsPrincipalClaims) CanRead(resource string) bool {
	return w.principal.Role.IsAtLeast(RoleReadOnly)
}

func (w *wsPrincipalClaims) CanEdit(resource string) bool {
	return w.principal.Role.IsAtLeast(RoleUser)
}

func (w *wsPrincipalClaims) CanCreate(resource string) bool {
	return w.principal.Role.IsAtLeast(RoleUser)
}

func (w *wsPrincipalClaims) CanDelete(resource string) bool {
	return w.principal.Role.IsAtLeast(RoleAdmin)
}

func (w *wsPrincipalClaims) HasRole(role string) bool {
	if assigned, ok := w.principal.Role.Role(); ok {
		return string(assigned) == role
	}
	return false
}

func (w *wsPrincipalClaims) IsAtLeast(minRole string) bool {
	min, ok := ParseRole(minRole)
	if !ok {
		return false
	}
	return w.principal.Role.IsAtLeast(min)
}

// WSPrincipalFromContext retrieves the Principal a websocket authentication
// middleware stored, when the claims came from this package's validator.
func WSPrincipalFromContext(ctx context.Context) (Principal, bool) {
	wsClaims, ok := router.WSAuthClaimsFromContext(ctx)
	if !ok {
		return Principal{}, false
	}

	if adapter, ok := wsClaims.(*wsPrincipalClaims); ok {
		return adapter.principal, true
	}

	return Principal{}, false
}
