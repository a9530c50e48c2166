// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-import/internal/platform/sec"
)

func signToken(t *testing.T, key *rsa.PrivateKey, claims sec.AuthClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

/*
TestTokenVerifier_VerifyToken covers valid, foreign-issuer and expired tokens.
*/
func TestTokenVerifier_VerifyToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	verifier := sec.NewTokenVerifierFromKey(&key.PublicKey, "yomira.app")
	now := time.Now()

	valid := sec.AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "yomira.app",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Role: string(sec.RoleAuthor),
	}

	t.Run("valid_token_falls_back_to_subject", func(t *testing.T) {
		claims, err := verifier.VerifyToken(signToken(t, key, valid))
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "author", claims.Role)
	})

	t.Run("foreign_issuer", func(t *testing.T) {
		foreign := valid
		foreign.Issuer = "elsewhere"
		_, err := verifier.VerifyToken(signToken(t, key, foreign))
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		expired := valid
		expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
		_, err := verifier.VerifyToken(signToken(t, key, expired))
		assert.Error(t, err)
	})
}

/*
TestUserRole_AtLeast checks the role hierarchy used by import routes.
*/
func TestUserRole_AtLeast(t *testing.T) {
	assert.True(t, sec.RoleAdmin.AtLeast(sec.RoleAuthor))
	assert.True(t, sec.RoleAuthor.AtLeast(sec.RoleAuthor))
	assert.False(t, sec.RoleMember.AtLeast(sec.RoleAuthor))
	assert.False(t, sec.UserRole("ghost").AtLeast(sec.RoleMember))
}
