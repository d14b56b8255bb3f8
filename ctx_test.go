package auth_test

import (
	"context"
	"testing"

	auth "github.com/ledgerkit/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalContextRoundTrip(t *testing.T) {
	p := auth.Principal{
		Subject: "user-1",
		Issuer:  "ledgerkit",
		Scheme:  auth.SchemeLocal,
		Role:    auth.AssignedRole(auth.RoleUser),
	}

	ctx := auth.WithPrincipal(context.Background(), p)

	got, ok := auth.PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestPrincipalFromContextMissing(t *testing.T) {
	_, ok := auth.PrincipalFromContext(context.Background())
	assert.False(t, ok)
}

func TestAllowed(t *testing.T) {
	p := auth.Principal{
		Subject: "user-1",
		Scheme:  auth.SchemeLocal,
		Role:    auth.AssignedRole(auth.RoleAdmin),
	}
	ctx := auth.WithPrincipal(context.Background(), p)

	assert.True(t, auth.Allowed(ctx, auth.RequireRole(auth.RoleUser)))
	assert.False(t, auth.Allowed(ctx, auth.RequireRole(auth.RoleSuperAdmin)))
	assert.False(t, auth.Allowed(context.Background(), auth.RequireRole(auth.RoleReadOnly)))
}
