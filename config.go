package auth

import (
	"net/url"
	"sync/atomic"

	"github.com/caarlos0/env/v11"
)

// EnvConfig is the environment backed Config implementation.
type EnvConfig struct {
	SigningKey               string   `env:"AUTH_SIGNING_KEY"`
	Issuer                   string   `env:"AUTH_ISSUER" envDefault:"ledgerkit"`
	AccessTokenExpiration    int      `env:"AUTH_ACCESS_TTL_HOURS" envDefault:"1"`
	RefreshTokenExpiration   int      `env:"AUTH_REFRESH_TTL_HOURS" envDefault:"168"`
	ExternalIssuer           string   `env:"AUTH_EXTERNAL_ISSUER"`
	ExternalIssuerPrefix     string   `env:"AUTH_EXTERNAL_ISSUER_PREFIX"`
	ExternalAudience         []string `env:"AUTH_EXTERNAL_AUDIENCE" envSeparator:","`
	ExternalJWKSEndpoint     string   `env:"AUTH_EXTERNAL_JWKS_ENDPOINT"`
	ExternalUserInfoEndpoint string   `env:"AUTH_EXTERNAL_USERINFO_ENDPOINT"`
	AuthScheme               string   `env:"AUTH_SCHEME" envDefault:"Bearer"`
	ContextKey               string   `env:"AUTH_CONTEXT_KEY" envDefault:"principal"`
}

// NewEnvConfig parses and validates configuration from the environment.
func NewEnvConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, ErrInvalidConfig.Clone().WithMetadata(map[string]any{
			"error": err.Error(),
		})
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces the startup invariants. A service that fails these is
// better off not starting.
func (c *EnvConfig) Validate() error {
	if len(c.SigningKey) < 32 {
		return ErrInvalidConfig.Clone().WithMetadata(map[string]any{
			"field":  "signing_key",
			"reason": "signing key must be at least 32 bytes",
		})
	}

	if c.Issuer == "" {
		return ErrInvalidConfig.Clone().WithMetadata(map[string]any{
			"field":  "issuer",
			"reason": "issuer must not be empty",
		})
	}

	if c.ExternalIssuer != "" {
		if _, err := url.Parse(c.ExternalIssuer); err != nil {
			return ErrInvalidConfig.Clone().WithMetadata(map[string]any{
				"field":  "external_issuer",
				"reason": err.Error(),
			})
		}
		if c.ExternalJWKSEndpoint == "" {
			return ErrInvalidConfig.Clone().WithMetadata(map[string]any{
				"field":  "external_jwks_endpoint",
				"reason": "required when an external issuer is configured",
			})
		}
		if c.ExternalIssuerPrefix == "" {
			c.ExternalIssuerPrefix = c.ExternalIssuer
		}
	}

	return nil
}

func (c *EnvConfig) GetSigningKey() string {
	return c.SigningKey
}

func (c *EnvConfig) GetIssuer() string {
	return c.Issuer
}

func (c *EnvConfig) GetAccessTokenExpiration() int {
	if c.AccessTokenExpiration <= 0 {
		return DefaultAccessTokenExpiration
	}
	return c.AccessTokenExpiration
}

func (c *EnvConfig) GetRefreshTokenExpiration() int {
	if c.RefreshTokenExpiration <= 0 {
		return DefaultRefreshTokenExpiration
	}
	return c.RefreshTokenExpiration
}

func (c *EnvConfig) GetExternalIssuer() string {
	return c.ExternalIssuer
}

func (c *EnvConfig) GetExternalIssuerPrefix() string {
	return c.ExternalIssuerPrefix
}

func (c *EnvConfig) GetExternalAudience() []string {
	return c.ExternalAudience
}

func (c *EnvConfig) GetExternalJWKSEndpoint() string {
	return c.ExternalJWKSEndpoint
}

func (c *EnvConfig) GetExternalUserInfoEndpoint() string {
	return c.ExternalUserInfoEndpoint
}

func (c *EnvConfig) GetAuthScheme() string {
	return c.AuthScheme
}

func (c *EnvConfig) GetContextKey() string {
	return c.ContextKey
}

var _ Config = (*EnvConfig)(nil)

// RuntimeSettings are the operator toggles an administrator can flip while
// the service is running.
type RuntimeSettings struct {
	LocalLoginEnabled        bool
	ExternalLoginEnabled     bool
	RegistrationEnabled      bool
	RequireEmailConfirmation bool
}

// DefaultSettings returns the toggles a fresh deployment starts with.
func DefaultSettings() RuntimeSettings {
	return RuntimeSettings{
		LocalLoginEnabled:        true,
		ExternalLoginEnabled:     true,
		RegistrationEnabled:      true,
		RequireEmailConfirmation: true,
	}
}

// SettingsStore publishes RuntimeSettings to concurrent readers. Reads are a
// single atomic load; every request in flight sees a consistent snapshot.
type SettingsStore struct {
	current atomic.Pointer[RuntimeSettings]
}

// NewSettingsStore creates a store seeded with the given settings.
func NewSettingsStore(initial RuntimeSettings) *SettingsStore {
	s := &SettingsStore{}
	s.current.Store(&initial)
	return s
}

// Snapshot returns the settings as of now.
func (s *SettingsStore) Snapshot() RuntimeSettings {
	return *s.current.Load()
}

// Replace swaps in a full new settings value.
func (s *SettingsStore) Replace(settings RuntimeSettings) {
	s.current.Store(&settings)
}

// Update applies mutate to the current settings and publishes the result.
func (s *SettingsStore) Update(mutate func(RuntimeSettings) RuntimeSettings) RuntimeSettings {
	for {
		old := s.current.Load()
		next := mutate(*old)
		if s.current.CompareAndSwap(old, &next) {
			return next
		}
	}
}
