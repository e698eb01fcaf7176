package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signHS256(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(subject string, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		Email: subject + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "chat-test",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func TestHMACVerifierAcceptsValidToken(t *testing.T) {
	v := NewHMACVerifier("secret", "chat-test")

	id, err := v.Verify(context.Background(), signHS256(t, "secret", validClaims("alice", time.Minute)))
	require.NoError(t, err)
	require.Equal(t, Identity{UserID: "alice", Email: "alice@example.com"}, id)
}

func TestHMACVerifierRejects(t *testing.T) {
	v := NewHMACVerifier("secret", "chat-test")
	ctx := context.Background()

	_, err := v.Verify(ctx, signHS256(t, "other", validClaims("alice", time.Minute)))
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(ctx, signHS256(t, "secret", validClaims("alice", -time.Minute)))
	require.ErrorIs(t, err, ErrExpiredToken)

	_, err = v.Verify(ctx, signHS256(t, "secret", validClaims("", time.Minute)))
	require.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := validClaims("alice", time.Minute)
	wrongIssuer.Issuer = "someone-else"
	_, err = v.Verify(ctx, signHS256(t, "secret", wrongIssuer))
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(ctx, "not-a-jwt")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRSAVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	v, err := NewRSAVerifier(pemBytes, "")
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims("bob", time.Minute)).SignedString(key)
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "bob", id.UserID)

	// An HMAC token must not be accepted by an RSA verifier.
	_, err = v.Verify(context.Background(), signHS256(t, "secret", validClaims("bob", time.Minute)))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewVerifierRequiresKey(t *testing.T) {
	_, err := NewVerifier("", "", "")
	require.Error(t, err)

	_, err = NewVerifier("", "/does/not/exist.pem", "")
	require.Error(t, err)

	v, err := NewVerifier("secret", "", "")
	require.NoError(t, err)
	require.NotNil(t, v)
}
