package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// ExternalIdentity is the only thing the external scheme exposes after a
// successful validation: the directory subject and the issuer that signed
// the token.
type ExternalIdentity struct {
	Subject string
	Issuer  string
}

// ExternalVerifierConfig configures JWKS backed validation of directory
// issued tokens.
type ExternalVerifierConfig struct {
	// Issuer is the directory authority, matched exactly against iss.
	Issuer string
	// JWKSEndpoint is the directory JWK Set URL.
	JWKSEndpoint string
	// Audience values accepted in aud; empty skips the audience check.
	Audience []string
	// KeyFunc overrides JWKS fetching. Used by tests and by deployments
	// that pin keys.
	KeyFunc jwt.Keyfunc
	// RefreshInterval controls background JWKS refresh. Zero means 1h.
	RefreshInterval time.Duration
	Logger          Logger
}

// ExternalVerifier validates externally issued tokens with standard OIDC
// rules: RS256 signature against the directory JWKS, issuer, audience, and
// expiry. It exposes only the validated subject and issuer.
type ExternalVerifier struct {
	issuer   string
	audience []string
	keyFunc  jwt.Keyfunc
	logger   Logger
}

// NewExternalVerifier builds a verifier, fetching the directory JWKS unless
// a KeyFunc was supplied.
func NewExternalVerifier(cfg ExternalVerifierConfig) (*ExternalVerifier, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = defLogger{}
	}

	if cfg.Issuer == "" {
		return nil, ErrInvalidConfig.Clone().WithMetadata(map[string]any{
			"reason": "external issuer is required",
		})
	}

	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		if cfg.JWKSEndpoint == "" {
			return nil, ErrInvalidConfig.Clone().WithMetadata(map[string]any{
				"reason": "external JWKS endpoint is required",
			})
		}

		refreshInterval := cfg.RefreshInterval
		if refreshInterval == 0 {
			refreshInterval = time.Hour
		}

		jwks, err := keyfunc.Get(cfg.JWKSEndpoint, keyfunc.Options{
			RefreshInterval:   refreshInterval,
			RefreshRateLimit:  time.Minute * 5,
			RefreshTimeout:    time.Second * 10,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				logger.Warn("failed to refresh directory JWK set", "error", err)
			},
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryOperation, "failed to fetch directory JWK set").
				WithTextCode(TextCodeDirectoryUnavailable)
		}
		keyFunc = jwks.Keyfunc
	}

	return &ExternalVerifier{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		keyFunc:  keyFunc,
		logger:   logger,
	}, nil
}

// Verify validates a directory issued token. Any defect reports the same
// uniform unauthenticated error.
func (v *ExternalVerifier) Verify(rawToken string) (*ExternalIdentity, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
	}
	for _, aud := range v.audience {
		parserOptions = append(parserOptions, jwt.WithAudience(aud))
	}

	token, err := jwt.ParseWithClaims(rawToken, jwt.MapClaims{}, v.keyFunc, parserOptions...)
	if err != nil {
		v.logger.Debug("external token rejected", "error", err)
		return nil, ErrUnauthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrUnauthenticated
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return nil, ErrUnauthenticated
	}

	issuer, err := claims.GetIssuer()
	if err != nil {
		return nil, ErrUnauthenticated
	}

	return &ExternalIdentity{Subject: subject, Issuer: issuer}, nil
}

// DirectoryClient fetches verified profile attributes from the directory
// userinfo endpoint. It is the only network bound step in the registration
// path: it honors caller cancellation and reports unavailability as a
// distinct, retryable error so callers never mistake an outage for an
// unregistered user.
type DirectoryClient struct {
	userInfoEndpoint string
	client           *http.Client
	logger           Logger
}

// NewDirectoryClient creates a client for the directory userinfo endpoint.
func NewDirectoryClient(userInfoEndpoint string) *DirectoryClient {
	return &DirectoryClient{
		userInfoEndpoint: userInfoEndpoint,
		client:           &http.Client{Timeout: 10 * time.Second},
		logger:           defLogger{},
	}
}

func (c *DirectoryClient) WithHTTPClient(client *http.Client) *DirectoryClient {
	if client != nil {
		c.client = client
	}
	return c
}

func (c *DirectoryClient) WithLogger(logger Logger) *DirectoryClient {
	c.logger = logger
	return c
}

// Profile implements ExternalIdentityClient.
func (c *DirectoryClient) Profile(ctx context.Context, accessToken string) (*ExternalProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoEndpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to build userinfo request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), errors.CategoryOperation, "userinfo request cancelled")
		}
		c.logger.Warn("directory userinfo request failed", "error", err)
		return nil, directoryUnavailable(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthenticated
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Warn("directory userinfo returned unexpected status", "status", resp.StatusCode, "body", string(body))
		return nil, ErrDirectoryUnavailable.Clone().WithMetadata(map[string]any{
			"status": resp.StatusCode,
		})
	}

	var profile ExternalProfile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&profile); err != nil {
		return nil, directoryUnavailable(err)
	}

	if profile.Subject == "" {
		// a userinfo payload without sub is a protocol violation
		return nil, ErrDirectoryUnavailable.Clone().WithMetadata(map[string]any{
			"reason": "userinfo response missing sub",
		})
	}

	return &profile, nil
}

func directoryUnavailable(err error) error {
	clone := ErrDirectoryUnavailable.Clone()
	clone.Source = err
	return clone
}

var _ ExternalIdentityClient = (*DirectoryClient)(nil)
