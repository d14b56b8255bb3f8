package auth_test

import (
	"fmt"
	"testing"

	auth "github.com/ledgerkit/go-auth"
	"github.com/stretchr/testify/assert"
)

func TestIsTokenExpiredError(t *testing.T) {
	assert.True(t, auth.IsTokenExpiredError(auth.ErrTokenExpired))
	assert.True(t, auth.IsTokenExpiredError(fmt.Errorf("wrapped: token is expired")))
	assert.False(t, auth.IsTokenExpiredError(auth.ErrTokenMalformed))
	assert.False(t, auth.IsTokenExpiredError(nil))
}

func TestIsMalformedError(t *testing.T) {
	assert.True(t, auth.IsMalformedError(auth.ErrTokenMalformed))
	assert.True(t, auth.IsMalformedError(fmt.Errorf("missing or malformed JWT")))
	assert.False(t, auth.IsMalformedError(auth.ErrTokenExpired))
	assert.False(t, auth.IsMalformedError(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"sqlite", fmt.Errorf("constraint failed: UNIQUE constraint failed: identity_links.subject"), true},
		{"postgres", fmt.Errorf(`ERROR: duplicate key value violates unique constraint "uq_identity_links_subject"`), true},
		{"sqlstate", fmt.Errorf("pq: some error (SQLSTATE 23505)"), true},
		{"unrelated", fmt.Errorf("connection refused"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, auth.IsUniqueViolation(tc.err))
		})
	}
}
