package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/internal/auth"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
)

func TestTokenManager(t *testing.T) {
	user := model.User{ID: 3, Username: "ana", Role: model.RoleAdmin}

	t.Run("Should round trip the principal", func(t *testing.T) {
		m := auth.NewTokenManager("secret", 30*time.Minute)

		token, expiresAt, err := m.Issue(user)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(30*time.Minute), expiresAt, 5*time.Second)

		p, err := m.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, auth.Principal{UserID: 3, Username: "ana", Role: model.RoleAdmin}, p)
		assert.True(t, p.IsAdmin())
	})

	t.Run("Should reject a token signed with another secret", func(t *testing.T) {
		token, _, err := auth.NewTokenManager("other", time.Minute).Issue(user)
		require.NoError(t, err)

		_, err = auth.NewTokenManager("secret", time.Minute).Verify(token)
		assert.ErrorIs(t, err, apperr.InvalidTokenErr)
	})

	t.Run("Should reject an expired token", func(t *testing.T) {
		token, _, err := auth.NewTokenManager("secret", -time.Minute).Issue(user)
		require.NoError(t, err)

		_, err = auth.NewTokenManager("secret", time.Minute).Verify(token)
		assert.ErrorIs(t, err, apperr.InvalidTokenErr)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("Should reject garbage", func(t *testing.T) {
		_, err := auth.NewTokenManager("secret", time.Minute).Verify("not.a.token")
		assert.ErrorIs(t, err, apperr.InvalidTokenErr)
	})
}

func TestPasswordHasher(t *testing.T) {
	h := auth.NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	ok, err := h.Compare(hash, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Compare(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Compare("not-a-hash", "s3cret")
	assert.Error(t, err)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := auth.PrincipalFromContext(context.Background())
	assert.False(t, ok)

	ctx := auth.NewContextWithPrincipal(context.Background(), auth.Principal{UserID: 1, Role: model.RoleCommon})
	p, ok := auth.PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.False(t, p.IsAdmin())
}
