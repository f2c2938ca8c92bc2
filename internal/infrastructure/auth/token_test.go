package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123"

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager(testSecret, "school-finance", time.Hour)

	token, err := m.Issue("bursar", 1)
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "bursar", claims.Subject)
	assert.Equal(t, 1, claims.Role)
	assert.Equal(t, "school-finance", claims.Issuer)
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager(testSecret, "school-finance", time.Hour)
	token, err := m.Issue("bursar", 1)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("another-secret-0123456", "school-finance", time.Hour)
		_, err := other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewTokenManager(testSecret, "someone-else", time.Hour)
		_, err := other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewTokenManager(testSecret, "school-finance", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenManager_IssueValidation(t *testing.T) {
	m := NewTokenManager(testSecret, "", 0)

	_, err := m.Issue("", 1)
	assert.Error(t, err)

	_, err = m.Issue("bursar", -1)
	assert.Error(t, err)
}
