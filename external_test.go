package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	auth "github.com/ledgerkit/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const externalIssuer = "https://login.example.com/"

func newRSAVerifier(t *testing.T, audience []string) (*auth.ExternalVerifier, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	verifier, err := auth.NewExternalVerifier(auth.ExternalVerifierConfig{
		Issuer:   externalIssuer,
		Audience: audience,
		KeyFunc: func(token *jwt.Token) (any, error) {
			return &key.PublicKey, nil
		},
	})
	require.NoError(t, err)

	return verifier, key
}

func signRS256(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestExternalVerifierAcceptsDirectoryToken(t *testing.T) {
	verifier, key := newRSAVerifier(t, []string{"ledger-api"})

	token := signRS256(t, key, jwt.MapClaims{
		"iss": externalIssuer,
		"sub": "dir|ada",
		"aud": "ledger-api",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})

	identity, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "dir|ada", identity.Subject)
	assert.Equal(t, externalIssuer, identity.Issuer)
}

func TestExternalVerifierRejectsUniformly(t *testing.T) {
	verifier, key := newRSAVerifier(t, []string{"ledger-api"})

	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"iss": externalIssuer,
			"sub": "dir|ada",
			"aud": "ledger-api",
			"exp": time.Now().Add(time.Hour).Unix(),
			"iat": time.Now().Unix(),
		}
	}

	wrongIssuer := base()
	wrongIssuer["iss"] = "https://rogue.example.org/"

	wrongAudience := base()
	wrongAudience["aud"] = "someone-else"

	expired := base()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	missingSubject := base()
	delete(missingSubject, "sub")

	hmacToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, base()).
		SignedString([]byte("symmetric-key-should-never-pass!"))
	require.NoError(t, err)

	cases := []struct {
		name  string
		token string
	}{
		{"wrong issuer", signRS256(t, key, wrongIssuer)},
		{"wrong audience", signRS256(t, key, wrongAudience)},
		{"expired", signRS256(t, key, expired)},
		{"missing subject", signRS256(t, key, missingSubject)},
		{"symmetric algorithm", hmacToken},
		{"garbage", "not-a-token"},
		{"empty", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			identity, err := verifier.Verify(tc.token)
			assert.Nil(t, identity)
			assert.ErrorIs(t, err, auth.ErrUnauthenticated)
		})
	}
}

func TestNewExternalVerifierConfigErrors(t *testing.T) {
	_, err := auth.NewExternalVerifier(auth.ExternalVerifierConfig{})
	require.Error(t, err)

	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, auth.TextCodeInvalidConfig, richErr.TextCode)

	_, err = auth.NewExternalVerifier(auth.ExternalVerifierConfig{Issuer: externalIssuer})
	require.Error(t, err)
}

func TestDirectoryClientProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer directory-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"sub": "dir|ada",
			"name": "Ada Lovelace",
			"given_name": "Ada",
			"family_name": "Lovelace",
			"email": "ada@example.com",
			"email_verified": true
		}`))
	}))
	defer server.Close()

	client := auth.NewDirectoryClient(server.URL)

	profile, err := client.Profile(context.Background(), "directory-token")
	require.NoError(t, err)
	assert.Equal(t, "dir|ada", profile.Subject)
	assert.Equal(t, "Ada Lovelace", profile.DisplayName)
	assert.Equal(t, "ada@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
}

func TestDirectoryClientRejectedToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := auth.NewDirectoryClient(server.URL)

	_, err := client.Profile(context.Background(), "stale-token")
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestDirectoryClientOutageIsDistinct(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := auth.NewDirectoryClient(server.URL)

		_, err := client.Profile(context.Background(), "directory-token")
		require.Error(t, err)

		var richErr *errors.Error
		require.True(t, errors.As(err, &richErr))
		assert.Equal(t, auth.TextCodeDirectoryUnavailable, richErr.TextCode)
	})

	t.Run("unreachable host", func(t *testing.T) {
		client := auth.NewDirectoryClient("http://127.0.0.1:1/userinfo")

		_, err := client.Profile(context.Background(), "directory-token")
		require.Error(t, err)

		var richErr *errors.Error
		require.True(t, errors.As(err, &richErr))
		assert.Equal(t, auth.TextCodeDirectoryUnavailable, richErr.TextCode)
	})

	t.Run("missing sub in payload", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"email": "ada@example.com"}`))
		}))
		defer server.Close()

		client := auth.NewDirectoryClient(server.URL)

		_, err := client.Profile(context.Background(), "directory-token")
		require.Error(t, err)

		var richErr *errors.Error
		require.True(t, errors.As(err, &richErr))
		assert.Equal(t, auth.TextCodeDirectoryUnavailable, richErr.TextCode)
	})
}

func TestDirectoryClientHonorsCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := auth.NewDirectoryClient(server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.Profile(ctx, "directory-token")
	require.Error(t, err)

	// cancellation is the caller's doing, not a directory outage
	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.NotEqual(t, auth.TextCodeDirectoryUnavailable, richErr.TextCode)
	assert.ErrorIs(t, err, context.Canceled)
}
