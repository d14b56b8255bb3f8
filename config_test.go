package auth_test

import (
	"sync"
	"testing"

	auth "github.com/ledgerkit/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnvConfig() *auth.EnvConfig {
	return &auth.EnvConfig{
		SigningKey: testSigningKey,
		Issuer:     "ledgerkit",
	}
}

func TestEnvConfigValidate(t *testing.T) {
	t.Run("minimal local only config", func(t *testing.T) {
		assert.NoError(t, validEnvConfig().Validate())
	})

	t.Run("short signing key is fatal", func(t *testing.T) {
		cfg := validEnvConfig()
		cfg.SigningKey = "too-short"
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing issuer is fatal", func(t *testing.T) {
		cfg := validEnvConfig()
		cfg.Issuer = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("external issuer requires a JWKS endpoint", func(t *testing.T) {
		cfg := validEnvConfig()
		cfg.ExternalIssuer = "https://login.example.com/"
		assert.Error(t, cfg.Validate())

		cfg.ExternalJWKSEndpoint = "https://login.example.com/.well-known/jwks.json"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("issuer prefix defaults to the external issuer", func(t *testing.T) {
		cfg := validEnvConfig()
		cfg.ExternalIssuer = "https://login.example.com/"
		cfg.ExternalJWKSEndpoint = "https://login.example.com/.well-known/jwks.json"
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "https://login.example.com/", cfg.GetExternalIssuerPrefix())
	})
}

func TestNewEnvConfigFromEnvironment(t *testing.T) {
	t.Setenv("AUTH_SIGNING_KEY", testSigningKey)
	t.Setenv("AUTH_ISSUER", "ledgerkit-test")
	t.Setenv("AUTH_ACCESS_TTL_HOURS", "2")
	t.Setenv("AUTH_EXTERNAL_AUDIENCE", "ledger-api,reports-api")

	cfg, err := auth.NewEnvConfig()
	require.NoError(t, err)

	assert.Equal(t, "ledgerkit-test", cfg.GetIssuer())
	assert.Equal(t, 2, cfg.GetAccessTokenExpiration())
	assert.Equal(t, 168, cfg.GetRefreshTokenExpiration())
	assert.Equal(t, []string{"ledger-api", "reports-api"}, cfg.GetExternalAudience())
	assert.Equal(t, "Bearer", cfg.GetAuthScheme())
	assert.Equal(t, "principal", cfg.GetContextKey())
}

func TestSettingsStoreSnapshotAndUpdate(t *testing.T) {
	store := auth.NewSettingsStore(auth.DefaultSettings())

	snapshot := store.Snapshot()
	assert.True(t, snapshot.RegistrationEnabled)
	assert.True(t, snapshot.LocalLoginEnabled)

	store.Update(func(s auth.RuntimeSettings) auth.RuntimeSettings {
		s.RegistrationEnabled = false
		return s
	})

	assert.False(t, store.Snapshot().RegistrationEnabled)
	// unrelated toggles are untouched
	assert.True(t, store.Snapshot().LocalLoginEnabled)

	store.Replace(auth.RuntimeSettings{})
	assert.False(t, store.Snapshot().LocalLoginEnabled)
}

func TestSettingsStoreConcurrentUpdates(t *testing.T) {
	store := auth.NewSettingsStore(auth.RuntimeSettings{})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(flip bool) {
			defer wg.Done()
			store.Update(func(s auth.RuntimeSettings) auth.RuntimeSettings {
				s.RegistrationEnabled = flip
				return s
			})
			_ = store.Snapshot()
		}(i%2 == 0)
	}
	wg.Wait()

	// the store must end in one of the two written states, never torn
	snapshot := store.Snapshot()
	assert.False(t, snapshot.LocalLoginEnabled)
	assert.False(t, snapshot.ExternalLoginEnabled)
}
