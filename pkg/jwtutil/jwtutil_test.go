package jwtutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"catalog-service/pkg/config"
)

func TestGenerateAndValidateToken(t *testing.T) {
	util := NewJWTUtil(&config.JWTConfig{SigningKey: "unit-test-key", ExpirationHours: 2})

	token, err := util.GenerateToken("staff@example.com", 7, "ops")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := util.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "staff@example.com", claims.Email)
	require.Equal(t, uint(7), claims.UserID)
	require.Equal(t, "ops", claims.Role)
	require.WithinDuration(t, time.Now().Add(2*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestValidateToken_RejectsWrongKey(t *testing.T) {
	signer := NewJWTUtil(&config.JWTConfig{SigningKey: "key-one", ExpirationHours: 1})
	verifier := NewJWTUtil(&config.JWTConfig{SigningKey: "key-two", ExpirationHours: 1})

	token, err := signer.GenerateToken("staff@example.com", 7, "ops")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_RejectsExpiredToken(t *testing.T) {
	util := NewJWTUtil(&config.JWTConfig{SigningKey: "unit-test-key", ExpirationHours: -1})

	token, err := util.GenerateToken("staff@example.com", 7, "ops")
	require.NoError(t, err)

	_, err = util.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_RejectsGarbage(t *testing.T) {
	util := NewJWTUtil(&config.JWTConfig{SigningKey: "unit-test-key", ExpirationHours: 1})

	_, err := util.ValidateToken("not.a.token")
	require.Error(t, err)
}

func TestNilConfigRefusesBothDirections(t *testing.T) {
	util := NewJWTUtil(nil)

	_, err := util.GenerateToken("staff@example.com", 7, "ops")
	require.Error(t, err)
	_, err = util.ValidateToken("anything")
	require.Error(t, err)
}
