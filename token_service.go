package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenService is the codec for locally issued token pairs.
type TokenService interface {
	IssueRefreshToken(userID string) (string, error)
	IssueAccessToken(refreshToken string) (string, error)
	ValidateAccessToken(token string) (subject string, ok bool)
}

// DefaultRefreshTokenExpiration is the refresh token lifetime in hours.
const DefaultRefreshTokenExpiration = 7 * 24

// DefaultAccessTokenExpiration is the access token lifetime in hours.
const DefaultAccessTokenExpiration = 1

// TokenServiceImpl implements the TokenService interface. Issuance and
// validation are pure functions of (claims, signing key); there is no token
// store, so revoking a token before its natural expiry is not possible.
type TokenServiceImpl struct {
	signingKey        []byte
	accessExpiration  int
	refreshExpiration int
	issuer            string
	logger            Logger
	decorator         ClaimsDecorator
}

// NewTokenService creates a new TokenService instance. Expirations are in
// hours; zero values fall back to the 7 day / 1 hour defaults.
func NewTokenService(signingKey []byte, issuer string, accessExpiration, refreshExpiration int, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	if accessExpiration <= 0 {
		accessExpiration = DefaultAccessTokenExpiration
	}
	if refreshExpiration <= 0 {
		refreshExpiration = DefaultRefreshTokenExpiration
	}
	return &TokenServiceImpl{
		signingKey:        signingKey,
		accessExpiration:  accessExpiration,
		refreshExpiration: refreshExpiration,
		issuer:            issuer,
		logger:            logger,
	}
}

// WithClaimsDecorator installs a decorator that may enrich claim extensions
// before tokens are signed.
func (ts *TokenServiceImpl) WithClaimsDecorator(d ClaimsDecorator) *TokenServiceImpl {
	ts.decorator = d
	return ts
}

// IssueRefreshToken mints a refresh token for the given user id.
func (ts *TokenServiceImpl) IssueRefreshToken(userID string) (string, error) {
	return ts.signClaims(ts.newClaims(userID, AudienceRefresh, ts.refreshExpiration))
}

// IssueAccessToken validates a refresh token and, on success, mints an
// access token for the same subject. Any refresh token defect (signature,
// issuer, audience, expiry) yields the same uniform failure.
func (ts *TokenServiceImpl) IssueAccessToken(refreshToken string) (string, error) {
	claims, err := ts.validate(refreshToken, AudienceRefresh)
	if err != nil {
		ts.logger.Debug("refresh token rejected", "error", err)
		return "", ErrUnauthenticated
	}

	return ts.signClaims(ts.newClaims(claims.Subject(), AudienceAccess, ts.accessExpiration))
}

// ValidateAccessToken returns the subject of a valid access token. It is a
// total function: malformed, expired, wrong issuer, and wrong audience
// inputs all report not-ok without distinction.
func (ts *TokenServiceImpl) ValidateAccessToken(token string) (string, bool) {
	claims, err := ts.validate(token, AudienceAccess)
	if err != nil {
		return "", false
	}
	return claims.Subject(), true
}

// IssuePair mints a refresh token plus its first access token.
func (ts *TokenServiceImpl) IssuePair(userID string) (*TokenPair, error) {
	refresh, err := ts.IssueRefreshToken(userID)
	if err != nil {
		return nil, err
	}

	access, err := ts.signClaims(ts.newClaims(userID, AudienceAccess, ts.accessExpiration))
	if err != nil {
		return nil, err
	}

	return &TokenPair{RefreshToken: refresh, AccessToken: access}, nil
}

func (ts *TokenServiceImpl) newClaims(userID, audience string, expirationHours int) *TokenClaims {
	now := time.Now()
	return &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expirationHours) * time.Hour)),
		},
		Scope: TokenScope,
	}
}

func (ts *TokenServiceImpl) signClaims(claims *TokenClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	if err := decorateClaims(context.Background(), ts.decorator, claims); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "claims decorator failed")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// validate parses a token and enforces signature, issuer, audience, and
// expiry with zero clock skew tolerance.
func (ts *TokenServiceImpl) validate(tokenString, audience string) (*TokenClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ts.issuer),
		jwt.WithAudience(audience),
		jwt.WithIssuedAt(),
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	// WithAudience matches any listed audience; the pair scheme requires
	// exactly one tag so a token can never satisfy both operations.
	if claims.TokenAudience() != audience {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
