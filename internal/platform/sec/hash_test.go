// Copyright (c) 2026 Optica. All rights reserved.

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optica-app/optica/internal/platform/sec"
)

/*
TestHashPassword_RoundTrip verifies that any hashed password verifies against
its own hash, and that two hashes of the same input differ (unique salt).
*/
func TestHashPassword_RoundTrip(t *testing.T) {
	passwords := []string{"Abcdef12", "correct horse battery staple 1A", "密码Secret99"}

	for _, password := range passwords {
		first, err := sec.HashPassword(password)
		require.NoError(t, err)

		second, err := sec.HashPassword(password)
		require.NoError(t, err)

		// bcrypt salts per call, so the same input never hashes identically.
		assert.NotEqual(t, first, second)

		assert.True(t, sec.CheckPasswordHash(password, first))
		assert.True(t, sec.CheckPasswordHash(password, second))
		assert.False(t, sec.CheckPasswordHash(password+"x", first))
	}
}

/*
TestCheckPasswordHash_MalformedHash verifies the mismatch-not-error contract
for garbage stored hashes.
*/
func TestCheckPasswordHash_MalformedHash(t *testing.T) {
	assert.False(t, sec.CheckPasswordHash("whatever", ""))
	assert.False(t, sec.CheckPasswordHash("whatever", "not-a-bcrypt-hash"))
}

/*
TestCheckPasswordStrength exercises every policy rule plus the advisory branch.
*/
func TestCheckPasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		ok       bool
	}{
		{"too_short", "Ab1", false},
		{"seven_chars", "Abcdef1", false},
		{"no_digit", "Abcdefgh", false},
		{"no_lowercase", "ABCDEFG1", false},
		{"no_uppercase", "abcdefg1", false},
		{"no_specials_is_advisory", "Abcdef12", true},
		{"strong", "Abcdef12!", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, message := sec.CheckPasswordStrength(tt.password)
			assert.Equal(t, tt.ok, ok)
			assert.NotEmpty(t, message)
		})
	}
}

/*
TestGenerateSessionToken verifies entropy length and uniqueness.
*/
func TestGenerateSessionToken(t *testing.T) {
	first, err := sec.GenerateSessionToken()
	require.NoError(t, err)

	second, err := sec.GenerateSessionToken()
	require.NoError(t, err)

	assert.Len(t, first, 64)
	assert.NotEqual(t, first, second)
}
