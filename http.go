package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RouteGuard is the HTTP boundary: it turns a bearer token into a resolved
// Principal and exposes policy middleware on top of it. Every token failure
// is rendered as the same 401 regardless of cause.
type RouteGuard struct {
	cfg          Config
	selector     *SchemeSelector
	local        *LocalAuthenticator
	external     *ExternalVerifier
	resolver     *ClaimsResolver
	settings     *SettingsStore
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

// NewRouteGuard wires the authentication pipeline for router middleware.
func NewRouteGuard(
	cfg Config,
	selector *SchemeSelector,
	local *LocalAuthenticator,
	external *ExternalVerifier,
	resolver *ClaimsResolver,
	settings *SettingsStore,
) *RouteGuard {
	g := &RouteGuard{
		cfg:      cfg,
		selector: selector,
		local:    local,
		external: external,
		resolver: resolver,
		settings: settings,
		Logger:   defLogger{},
	}

	g.ErrorHandler = g.defaultErrHandler

	return g
}

// Authenticate returns the middleware that validates the request's bearer
// token and stores the resolved Principal under the configured context key.
// With optional set, requests without a valid token proceed anonymously.
func (g *RouteGuard) Authenticate(optional bool) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			principal, err := g.authenticate(c)
			if err != nil {
				if optional {
					g.Logger.Debug("optional auth failed, proceeding anonymously", "error", err)
					return c.Next()
				}
				return g.ErrorHandler(c, err)
			}

			c.Locals(g.contextKey(), principal)
			return c.Next()
		}
	}
}

// RequirePolicy returns middleware that evaluates policy against the
// Principal a previous Authenticate stored. Runs after Authenticate.
func (g *RouteGuard) RequirePolicy(policy Policy) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			p, ok := PrincipalFromRouter(c, g.contextKey())
			if !ok {
				return g.ErrorHandler(c, ErrUnauthenticated)
			}

			if err := policy.Allow(p); err != nil {
				return g.ErrorHandler(c, err)
			}

			return c.Next()
		}
	}
}

// authenticate runs scheme selection and the matching validator.
func (g *RouteGuard) authenticate(c router.Context) (Principal, error) {
	raw := BearerFromHeader(c.GetString(router.HeaderAuthorization, ""))
	return g.AuthenticateToken(c.Context(), raw)
}

// AuthenticateToken validates a raw token and resolves its Principal. Shared
// by the HTTP middleware and the websocket upgrade path.
func (g *RouteGuard) AuthenticateToken(ctx context.Context, raw string) (Principal, error) {
	if raw == "" {
		return Principal{}, ErrUnauthenticated
	}

	settings := g.settings.Snapshot()

	var principal Principal

	switch g.selector.Select(raw) {
	case SchemeLocal:
		if !settings.LocalLoginEnabled || g.local == nil {
			return Principal{}, ErrUnauthenticated
		}

		subject, ok := g.local.ValidateAccessToken(raw)
		if !ok {
			return Principal{}, ErrUnauthenticated
		}

		principal = Principal{
			Subject: subject,
			Issuer:  g.cfg.GetIssuer(),
			Scheme:  SchemeLocal,
		}

	case SchemeExternal:
		if !settings.ExternalLoginEnabled || g.external == nil {
			return Principal{}, ErrUnauthenticated
		}

		identity, err := g.external.Verify(raw)
		if err != nil {
			return Principal{}, err
		}

		principal = Principal{
			Subject: identity.Subject,
			Issuer:  identity.Issuer,
			Scheme:  SchemeExternal,
		}

	default:
		return Principal{}, ErrUnauthenticated
	}

	resolved, err := g.resolver.Resolve(ctx, principal)
	if err != nil {
		g.Logger.Error("claims resolution failed", "subject", principal.Subject, "error", err)
		return Principal{}, errors.Wrap(err, errors.CategoryInternal, "failed to resolve claims")
	}

	return resolved, nil
}

func (g *RouteGuard) contextKey() string {
	key := g.cfg.GetContextKey()
	if key == "" {
		key = "principal"
	}
	return key
}

// defaultErrHandler maps failures onto the two statuses this boundary ever
// produces: 403 for policy denials, 401 for everything else.
func (g *RouteGuard) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "invalid authentication token").
			WithCode(errors.CodeUnauthorized)
	}

	g.Logger.Info(
		"request rejected",
		"text_code", richErr.TextCode,
		"category", richErr.Category,
		"path", c.OriginalURL(),
	)

	if richErr.Category == errors.CategoryAuthz {
		return c.JSON(router.StatusForbidden, map[string]string{
			"error": richErr.Message,
		})
	}

	return c.JSON(router.StatusUnauthorized, map[string]string{
		"error": ErrUnauthenticated.Message,
	})
}
