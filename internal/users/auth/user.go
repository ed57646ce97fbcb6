// Copyright (c) 2026 Optica. All rights reserved.

/*
Package auth implements the account identity and session-integrity layer.

It defines the core domain entity (User) and the logic for registration,
email verification, login with optional TOTP 2FA, token refresh, federated
login, and the rotating session token that binds issued JWTs to the account's
most recent login.

# Architecture

This layer is the "Truth" of the system. The entity defined here has no
external dependencies and encapsulates all business rules related to account
identity and session validity.
*/
package auth

import (
	"time"

	"github.com/optica-app/optica/internal/platform/sec"
)

// # Domain Entities

// User represents an account in the Optica admin panel.
//
// SessionToken is the heart of token invalidation: every successful login
// rotates it, and every protected request compares the JWT's session claim
// against it. There is no token blacklist; rotation is the sole revocation
// mechanism.
type User struct {
	ID           int64    `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"` // Explicitly omitted from JSON for security.
	Role         sec.Role `json:"role"`

	TwoFAEnabled bool    `json:"two_fa_enabled"`
	TwoFASecret  *string `json:"-"` // Non-null while enrollment is pending or enabled.

	SessionToken *string `json:"-"` // Rotated on every successful login.

	IsActive      bool `json:"is_active"`
	IsBlocked     bool `json:"is_blocked"`
	EmailVerified bool `json:"email_verified"`

	VerificationCode   *string    `json:"-"`
	VerificationExpiry *time.Time `json:"-"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the auth domain.
const (
	FieldUsername     = "username"
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldCode         = "code"
	FieldTOTPCode     = "totp_code"
	FieldToken        = "token"
	FieldRefreshToken = "refresh_token"
	FieldIDToken      = "id_token"
	FieldRole         = "role"
	FieldAccessToken  = "access_token"
	FieldTokenType    = "token_type"
	FieldExpiresIn    = "expires_in"
	FieldUser         = "user"
	FieldMessage      = "message"
)
