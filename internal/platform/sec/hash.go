// Copyright (c) 2026 Optica. All rights reserved.

package sec

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plain-text password using the bcrypt algorithm.
//
// bcrypt embeds a unique salt, so hashing the same password twice yields
// different outputs.
func HashPassword(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plain-text password with its hashed version.
//
// A malformed hash is treated as a mismatch, never an error.
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}

// # Password Policy

// CheckPasswordStrength validates a password against the account policy.
//
// # Rules
//
//   - length >= 8 characters (reject)
//   - at least one digit (reject)
//   - at least one lowercase letter (reject)
//   - at least one uppercase letter (reject)
//   - special characters are recommended but their absence is only advisory
//
// The returned message is client-safe and explains the first failed rule, or
// carries the advisory note when the password is accepted.
func CheckPasswordStrength(password string) (bool, string) {
	if len(password) < 8 {
		return false, "Password must be at least 8 characters long"
	}

	var hasDigit, hasLower, hasUpper, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !hasDigit {
		return false, "Password must contain at least one digit"
	}
	if !hasLower {
		return false, "Password must contain at least one lowercase letter"
	}
	if !hasUpper {
		return false, "Password must contain at least one uppercase letter"
	}

	// Advisory only. Missing specials never rejects the password.
	if !hasSpecial {
		return true, "Consider adding special characters for a stronger password"
	}

	return true, "Password is strong"
}

// # Random Material

// sessionTokenBytes is the entropy of a session token (64 hex chars on the wire).
const sessionTokenBytes = 32

// GenerateSessionToken returns a fresh high-entropy session value.
//
// The value is stored on the account and embedded into issued JWTs; rotating
// it invalidates every previously issued session-bound token.
func GenerateSessionToken() (string, error) {
	return randomHex(sessionTokenBytes)
}

// GenerateUnusablePassword returns random material used as the password of
// federated accounts. It is hashed and stored but can never be typed, so
// password login stays effectively disabled for those accounts.
func GenerateUnusablePassword() (string, error) {
	return randomHex(32)
}

// randomHex returns n cryptographically random bytes, hex encoded.
func randomHex(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
