// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer behind small interfaces.
package sec

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// # Token Types

const (
	// TokenTypeRefresh is the value of the 'type' claim carried by refresh
	// tokens. Access tokens carry no 'type' claim at all — its absence is
	// what marks them as access tokens.
	TokenTypeRefresh = "refresh"
)

// Claims represents the payload embedded inside a Labtrace JWT.
//
// Access and refresh tokens share the same shape; only the TokenType claim
// and the lifetime differ.
type Claims struct {
	jwt.RegisteredClaims

	// TokenType is "refresh" for refresh tokens and empty for access tokens.
	TokenType string `json:"type,omitempty"`
}

// IsRefresh reports whether the claims belong to a refresh token.
func (c *Claims) IsRefresh() bool {
	return c.TokenType == TokenTypeRefresh
}

// TokenCodec signs and verifies compact JWTs using HS256.
//
// # Configuration
//
// The signing secret and algorithm are process-wide configuration. The codec
// is stateless after construction and safe for concurrent use.
type TokenCodec struct {
	secret   []byte
	issuer   string
	audience string
}

// NewTokenCodec creates a new TokenCodec from the shared signing secret.
func NewTokenCodec(secret, issuer, audience string) (*TokenCodec, error) {
	if secret == "" {
		return nil, fmt.Errorf("sec: signing secret must not be empty")
	}

	return &TokenCodec{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}, nil
}

// Sign creates a signed token for the given subject.
//
// # Parameters
//   - subject: The user ID placed into the 'sub' claim.
//   - tokenType: Empty for access tokens, [TokenTypeRefresh] for refresh tokens.
//   - timeToLive: The duration before the token expires.
//
// # Returns
//   - The compact three-part token string and its expiry instant.
func (codec *TokenCodec) Sign(subject, tokenType string, timeToLive time.Duration) (string, time.Time, error) {
	currentTime := time.Now()
	expiresAt := currentTime.Add(timeToLive)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    codec.issuer,
			Audience:  jwt.ClaimStrings{codec.audience},
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TokenType: tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(codec.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, expiresAt, nil
}

// Verify checks the signature and temporal validity of a token string.
//
// A token is accepted only if the HMAC signature verifies and 'exp' lies in
// the future. Malformed, tampered, and expired tokens all fail identically.
func (codec *TokenCodec) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return codec.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("sec: invalid token claims")
	}

	return claims, nil
}
