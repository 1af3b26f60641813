package backend

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStore(t *testing.T) {
	t.Run("should return no token before login", func(t *testing.T) {
		store, err := NewTokenStore(filepath.Join(t.TempDir(), "token"))
		require.NoError(t, err)

		token, err := store.Token()

		assert.NoError(t, err)
		assert.Empty(t, token)
		_, ok, err := store.ExpiresAt()
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("should read the expiry of a saved token", func(t *testing.T) {
		// given
		store, err := NewTokenStore(filepath.Join(t.TempDir(), "nested", "token"))
		require.NoError(t, err)
		expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "athlete",
			"exp": expiry.Unix(),
		}).SignedString([]byte("backend-secret"))
		require.NoError(t, err)

		// when
		require.NoError(t, store.Save(signed+"\n"))
		expiresAt, ok, err := store.ExpiresAt()

		// then
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, expiry.Equal(expiresAt))
		token, _ := store.Token()
		assert.Equal(t, signed, token)
	})

	t.Run("should fail on a token that is not a JWT and forget it on clear", func(t *testing.T) {
		store, err := NewTokenStore(filepath.Join(t.TempDir(), "token"))
		require.NoError(t, err)
		require.NoError(t, store.Save("opaque"))

		_, _, err = store.ExpiresAt()
		assert.Error(t, err)

		require.NoError(t, store.Clear())
		token, err := store.Token()
		assert.NoError(t, err)
		assert.Empty(t, token)
		assert.NoError(t, store.Clear())
	})
}
