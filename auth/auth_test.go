package auth

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestIssueAndValidate(t *testing.T) {
	token, err := IssueToken(secret, "operator", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Subject)
	assert.Greater(t, claims.ExpiresAt, claims.IssuedAt)
}

func TestTokenWithoutExpiry(t *testing.T) {
	token, err := IssueToken(secret, "operator", 0)
	require.NoError(t, err)

	claims, err := ValidateToken(secret, token)
	require.NoError(t, err)
	assert.Zero(t, claims.ExpiresAt)
}

func TestEmptySecretIsRejected(t *testing.T) {
	_, err := IssueToken(nil, "operator", time.Hour)
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{jwt.StandardClaims{
		Subject:   "operator",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}})
	expiredToken, err := expired.SignedString(secret)
	require.NoError(t, err)

	otherKey, err := IssueToken([]byte("other"), "operator", time.Hour)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":   "not-a-token",
		"expired":   expiredToken,
		"other key": otherKey,
		"none alg":  unsigned,
	} {
		_, err := ValidateToken(secret, token)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}
