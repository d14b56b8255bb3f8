package auth_test

import (
	"testing"

	auth "github.com/ledgerkit/go-auth"
	"github.com/stretchr/testify/assert"
)

func TestUserHasPasswordCredential(t *testing.T) {
	var nilUser *auth.User
	assert.False(t, nilUser.HasPasswordCredential())

	assert.False(t, (&auth.User{}).HasPasswordCredential())
	assert.True(t, (&auth.User{PasswordHash: "$2a$14$abc"}).HasPasswordCredential())
}

func TestUserDisplayName(t *testing.T) {
	cases := []struct {
		name string
		user *auth.User
		want string
	}{
		{"full name", &auth.User{FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{"first only", &auth.User{FirstName: "Ada"}, "Ada"},
		{"falls back to email", &auth.User{Email: "ada@example.com"}, "ada@example.com"},
		{"nil user", nil, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.user.DisplayName())
		})
	}
}
