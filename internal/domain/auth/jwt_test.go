package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))

	token, expiresAt, err := svc.GenerateAccessToken("ops-1", "ops@example.com", []string{RoleAdmin})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops-1", user.UserID)
	assert.Equal(t, "ops@example.com", user.Email)
	assert.Equal(t, []string{RoleAdmin}, user.Roles)
	assert.True(t, user.IsAdmin)
}

func TestJWTService_NonAdmin(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))

	token, _, err := svc.GenerateAccessToken("reader", "", []string{"reader"})
	require.NoError(t, err)

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.False(t, user.IsAdmin)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(DefaultJWTConfig("other"))
		token, _, err := other.GenerateAccessToken("u", "", nil)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		cfg := DefaultJWTConfig("secret")
		cfg.AccessTokenTTL = -time.Minute
		token, _, err := NewJWTService(cfg).GenerateAccessToken("u", "", nil)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		cfg := DefaultJWTConfig("secret")
		cfg.Issuer = "someone-else"
		token, _, err := NewJWTService(cfg).GenerateAccessToken("u", "", nil)
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.Error(t, err)
	})
}
