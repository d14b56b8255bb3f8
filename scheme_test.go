package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	auth "github.com/ledgerkit/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signWithIssuer(t *testing.T, issuer string) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "subject-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("selector-does-not-verify-this-key"))
	require.NoError(t, err)
	return signed
}

func TestSchemeSelect(t *testing.T) {
	selector := auth.NewSchemeSelector("ledgerkit", "https://login.example.com/")

	cases := []struct {
		name  string
		token string
		want  auth.Scheme
	}{
		{"local issuer", signWithIssuer(t, "ledgerkit"), auth.SchemeLocal},
		{"external issuer", signWithIssuer(t, "https://login.example.com/tenant-1"), auth.SchemeExternal},
		{"external issuer exact prefix", signWithIssuer(t, "https://login.example.com/"), auth.SchemeExternal},
		{"unknown issuer", signWithIssuer(t, "https://other.example.org"), auth.SchemeNone},
		{"missing issuer", signWithIssuer(t, ""), auth.SchemeNone},
		{"empty token", "", auth.SchemeNone},
		{"garbage token", "zzz.not.a-token", auth.SchemeNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, selector.Select(tc.token))
		})
	}
}

func TestSchemeSelectWithoutExternalPrefix(t *testing.T) {
	selector := auth.NewSchemeSelector("ledgerkit", "")

	assert.Equal(t, auth.SchemeLocal, selector.Select(signWithIssuer(t, "ledgerkit")))
	assert.Equal(t, auth.SchemeNone, selector.Select(signWithIssuer(t, "https://login.example.com/")))
}

func TestSchemeString(t *testing.T) {
	assert.Equal(t, "local", auth.SchemeLocal.String())
	assert.Equal(t, "external", auth.SchemeExternal.String())
	assert.Equal(t, "none", auth.SchemeNone.String())
}

func TestBearerFromHeader(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"standard", "Bearer abc.def.ghi", "abc.def.ghi"},
		{"lowercase scheme", "bearer abc.def.ghi", "abc.def.ghi"},
		{"no scheme", "abc.def.ghi", ""},
		{"basic auth", "Basic dXNlcjpwYXNz", ""},
		{"empty", "", ""},
		{"scheme only", "Bearer", ""},
		{"extra spaces", "Bearer    abc", "abc"},
		{"missing separator", "Bearerabc.def.ghi", ""},
		{"tab separator", "Bearer\tabc.def.ghi", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, auth.BearerFromHeader(tc.header))
		})
	}
}
