package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour, "dealhub")

	t.Run("RoundTrip", func(t *testing.T) {
		token, err := m.Generate(42, "alice")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := m.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), claims.UserID)
		assert.Equal(t, "alice", claims.Nickname)
		assert.Equal(t, "dealhub", claims.Issuer)
	})

	t.Run("RejectsGarbage", func(t *testing.T) {
		_, err := m.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("RejectsWrongSecret", func(t *testing.T) {
		other := NewJWTManager("other-secret", time.Hour, "dealhub")
		token, err := other.Generate(42, "alice")
		require.NoError(t, err)

		_, err = m.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("RejectsExpired", func(t *testing.T) {
		expired := NewJWTManager("test-secret", -time.Minute, "dealhub")
		token, err := expired.Generate(42, "alice")
		require.NoError(t, err)

		_, err = m.Parse(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}
