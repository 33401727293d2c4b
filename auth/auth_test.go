package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)
	assert.True(t, CheckPassword("correct horse battery staple", hash))
	assert.False(t, CheckPassword("wrong password", hash))
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := GenerateAccessToken("secret", time.Minute, "user-1", "a@example.com", "member")
	require.NoError(t, err)

	claims, err := ParseToken("secret", tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, "member", claims.Role)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	tok, err := GenerateAccessToken("secret", time.Minute, "user-1", "a@example.com", "member")
	require.NoError(t, err)

	_, err = ParseToken("other-secret", tok)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	tok, err := GenerateAccessToken("secret", -time.Minute, "user-1", "a@example.com", "member")
	require.NoError(t, err)

	_, err = ParseToken("secret", tok)
	assert.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	_, err := ParseToken("secret", "not.a.token")
	assert.Error(t, err)
}
