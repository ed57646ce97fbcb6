// Copyright (c) 2026 Optica. All rights reserved.

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing, TOTP)
// from the domain logic. It acts as an Infrastructure service injected into
// the Application layer via small interfaces.
package sec

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind discriminates access tokens from refresh tokens.
//
// The kind is embedded in the signed payload, so a refresh token can never be
// replayed where an access token is expected (and vice versa).
type TokenKind string

const (
	// TokenAccess is the short-lived credential authorizing individual API calls.
	TokenAccess TokenKind = "access"

	// TokenRefresh is the long-lived credential exchangeable for a new access token.
	TokenRefresh TokenKind = "refresh"
)

// AuthClaims represents the payload embedded inside an Optica JWT.
//
// # Why custom claims?
//
// By embedding the Username, Role, and Session value directly inside the JWT,
// protected handlers can reconstruct the caller's identity without a join;
// the session value additionally lets the middleware reject tokens issued
// before the account's last session rotation.
type AuthClaims struct {
	jwt.RegisteredClaims

	Username string `json:"username"`
	Role     string `json:"role"`

	// Session is the account's session token at issuance time. Tokens issued
	// before a rotation carry a stale value and fail the binding check.
	// Omitted (not an error) on tokens minted without session binding.
	Session string `json:"session,omitempty"`

	// Kind discriminates access from refresh tokens inside the signature.
	Kind TokenKind `json:"type"`
}

// UserID parses the canonical string subject back into an account identifier.
//
// The subject is carried as a decimal string to avoid cross-implementation
// ambiguity; a parse failure means the token is invalid.
func (c *AuthClaims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sec: invalid subject claim %q: %w", c.Subject, err)
	}
	return id, nil
}

// # Token Service

// TokenService handles generation and verification of JWT tokens using HS256.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService creates a new TokenService signing with the given shared secret.
//
// # Parameters
//   - secret: The HMAC key. Must be at least 32 bytes.
//   - issuer: The standard 'iss' claim for issued tokens.
//   - accessTTL: Lifetime of access tokens.
//   - refreshTTL: Lifetime of refresh tokens.
func NewTokenService(secret, issuer string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("sec: signing secret must be at least 32 bytes, got %d", len(secret))
	}

	return &TokenService{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// GenerateAccessToken creates a new short-lived access token for a user.
//
// sessionToken may be empty for tokens that are not session-bound.
func (service *TokenService) GenerateAccessToken(userID int64, username, role, sessionToken string) (string, error) {
	return service.generate(userID, username, role, sessionToken, TokenAccess, service.accessTTL)
}

// GenerateRefreshToken creates a new long-lived refresh token for a user.
func (service *TokenService) GenerateRefreshToken(userID int64, username, role, sessionToken string) (string, error) {
	return service.generate(userID, username, role, sessionToken, TokenRefresh, service.refreshTTL)
}

// generate signs a token of the given kind and lifetime.
func (service *TokenService) generate(userID int64, username, role, sessionToken string, kind TokenKind, ttl time.Duration) (string, error) {
	currentTime := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(ttl)),
		},
		Username: username,
		Role:     role,
		Session:  sessionToken,
		Kind:     kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// VerifyToken checks the signature, validity, and kind of a JWT string.
//
// It fails if the signature is invalid, the token has expired, or the embedded
// kind does not match expectedKind.
func (service *TokenService) VerifyToken(tokenString string, expectedKind TokenKind) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("sec: invalid token claims")
	}

	if claims.Kind != expectedKind {
		return nil, fmt.Errorf("sec: token kind mismatch: got %q, want %q", claims.Kind, expectedKind)
	}

	return claims, nil
}

// VerifyAccessToken is the [middleware.TokenVerifier] entry point.
func (service *TokenService) VerifyAccessToken(tokenString string) (*AuthClaims, error) {
	return service.VerifyToken(tokenString, TokenAccess)
}
