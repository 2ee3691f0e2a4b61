package jwtutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	util := NewJWTUtil(&JWTConfig{SigningKey: "test-secret", ExpirationHours: 1})

	token, err := util.GenerateToken("aoki@example.com", "Aoki", 10, 3, 2)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := util.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "aoki@example.com", claims.Email)
	assert.Equal(t, "Aoki", claims.Name)
	assert.Equal(t, uint(10), claims.UserID)
	assert.Equal(t, uint(3), claims.TenantID)
	assert.Equal(t, 2, claims.Role)
}

func TestValidateTokenRejectsWrongKey(t *testing.T) {
	issuer := NewJWTUtil(&JWTConfig{SigningKey: "key-one", ExpirationHours: 1})
	verifier := NewJWTUtil(&JWTConfig{SigningKey: "key-two", ExpirationHours: 1})

	token, err := issuer.GenerateToken("aoki@example.com", "Aoki", 10, 3, 2)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	util := NewJWTUtil(&JWTConfig{SigningKey: "test-secret", ExpirationHours: -1})

	token, err := util.GenerateToken("aoki@example.com", "Aoki", 10, 3, 2)
	require.NoError(t, err)

	_, err = util.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	util := NewJWTUtil(&JWTConfig{SigningKey: "test-secret", ExpirationHours: 1})

	_, err := util.ValidateToken("not-a-token")
	assert.Error(t, err)
}
