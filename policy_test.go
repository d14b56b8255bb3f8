package auth_test

import (
	"testing"

	"github.com/goliatone/go-errors"
	auth "github.com/ledgerkit/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func principalWith(scheme auth.Scheme, role auth.RoleAssignment) auth.Principal {
	return auth.Principal{
		Subject: "subject-1",
		Issuer:  "ledgerkit",
		Scheme:  scheme,
		Role:    role,
	}
}

func TestRequireRole(t *testing.T) {
	t.Run("dominance grid", func(t *testing.T) {
		ordered := auth.AllRoles()

		for i, minimum := range ordered {
			for j, held := range ordered {
				p := principalWith(auth.SchemeLocal, auth.AssignedRole(held))
				err := auth.RequireRole(minimum).Allow(p)
				if j >= i {
					assert.NoError(t, err, "%s against minimum %s", held, minimum)
				} else {
					assert.Error(t, err, "%s against minimum %s", held, minimum)
				}
			}
		}
	})

	t.Run("unassigned role is forbidden", func(t *testing.T) {
		p := principalWith(auth.SchemeExternal, auth.UnassignedRole())

		err := auth.RequireRole(auth.RoleReadOnly).Allow(p)
		require.Error(t, err)

		var richErr *errors.Error
		require.True(t, errors.As(err, &richErr))
		assert.Equal(t, errors.CategoryAuthz, richErr.Category)
	})

	t.Run("unauthenticated principal gets auth failure not authz", func(t *testing.T) {
		err := auth.RequireRole(auth.RoleReadOnly).Allow(auth.Principal{})
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})
}

func TestRequireScheme(t *testing.T) {
	p := principalWith(auth.SchemeLocal, auth.AssignedRole(auth.RoleSuperAdmin))

	assert.NoError(t, auth.RequireScheme(auth.SchemeLocal).Allow(p))

	// a high role never substitutes for the wrong scheme
	err := auth.RequireScheme(auth.SchemeExternal).Allow(p)
	require.Error(t, err)

	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, errors.CategoryAuthz, richErr.Category)
}

func TestAllOf(t *testing.T) {
	p := principalWith(auth.SchemeLocal, auth.AssignedRole(auth.RoleAdmin))

	both := auth.AllOf(
		auth.RequireScheme(auth.SchemeLocal),
		auth.RequireRole(auth.RoleAdmin),
	)
	assert.NoError(t, both.Allow(p))

	failing := auth.AllOf(
		auth.RequireScheme(auth.SchemeLocal),
		auth.RequireRole(auth.RoleSuperAdmin),
	)
	assert.Error(t, failing.Allow(p))

	t.Run("nil policies are skipped", func(t *testing.T) {
		assert.NoError(t, auth.AllOf(nil, auth.RequireScheme(auth.SchemeLocal)).Allow(p))
	})

	t.Run("empty conjunction allows", func(t *testing.T) {
		assert.NoError(t, auth.AllOf().Allow(auth.Principal{}))
	})
}
