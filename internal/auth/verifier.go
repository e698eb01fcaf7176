// Package auth verifies the bearer credentials presented in the authtoken
// header and yields the caller's identity.
package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when the token cannot be verified.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// Identity is the verified caller.
type Identity struct {
	UserID string
	Email  string
}

// Verifier validates a bearer credential.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Claims are the token claims the service reads. The subject is the user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTVerifier checks HS256 tokens against a shared secret or RS256 tokens
// against a public key.
type JWTVerifier struct {
	secret    []byte
	publicKey *rsa.PublicKey
	issuer    string
}

// NewHMACVerifier builds a verifier for HS256 tokens.
func NewHMACVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

// NewRSAVerifier builds a verifier for RS256 tokens from a PEM public key.
func NewRSAVerifier(pemBytes []byte, issuer string) (*JWTVerifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return &JWTVerifier{publicKey: key, issuer: issuer}, nil
}

// NewVerifier picks the RSA verifier when a key file is given and the HMAC
// verifier otherwise.
func NewVerifier(secret, publicKeyFile, issuer string) (*JWTVerifier, error) {
	if publicKeyFile != "" {
		pemBytes, err := os.ReadFile(publicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read public key: %w", err)
		}
		return NewRSAVerifier(pemBytes, issuer)
	}
	if secret == "" {
		return nil, errors.New("no verification key configured")
	}
	return NewHMACVerifier(secret, issuer), nil
}

// Verify validates the token and returns the identity it carries.
func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (Identity, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, v.keyFunc, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

func (v *JWTVerifier) keyFunc(token *jwt.Token) (any, error) {
	if v.publicKey != nil {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalidToken
		}
		return v.publicKey, nil
	}
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrInvalidToken
	}
	return v.secret, nil
}
