package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token audiences. A token is only ever accepted by the operation matching
// its audience claim; cross audience use is always rejected.
const (
	AudienceAccess  = "access"
	AudienceRefresh = "refresh"
)

// TokenScope is the fixed scope claim carried by every locally issued token.
const TokenScope = "ledger"

// TokenClaims is the wire shape of locally issued tokens:
// {sub, iss, aud, iat, exp, scope}.
type TokenClaims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}

// Subject returns the subject claim
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// TokenAudience returns the single audience tag of the token, or "" when the
// claim is missing or ambiguous.
func (c *TokenClaims) TokenAudience() string {
	if len(c.RegisteredClaims.Audience) != 1 {
		return ""
	}
	return c.RegisteredClaims.Audience[0]
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// TokenPair is the refresh/access pair handed out on login. Neither token is
// persisted; both are independently derivable from the signing key.
type TokenPair struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token"`
}

// Principal is the request scoped outcome of authentication: who the caller
// is, which scheme validated them, and the role the ClaimsResolver attached.
// It is populated once at the authentication boundary and passed down by
// parameter or context, never cached across requests.
type Principal struct {
	Subject string
	Issuer  string
	Scheme  Scheme
	Role    RoleAssignment
}

// Authenticated reports whether some scheme validated the request.
func (p Principal) Authenticated() bool {
	return p.Scheme != SchemeNone && p.Subject != ""
}
