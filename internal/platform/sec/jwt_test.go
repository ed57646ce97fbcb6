// Copyright (c) 2026 Optica. All rights reserved.

package sec_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optica-app/optica/internal/platform/sec"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestTokenService(t *testing.T, accessTTL, refreshTTL time.Duration) *sec.TokenService {
	t.Helper()
	service, err := sec.NewTokenService(testSecret, "optica-test", accessTTL, refreshTTL)
	require.NoError(t, err)
	return service
}

/*
TestNewTokenService_RejectsShortSecret guards the minimum HMAC key length.
*/
func TestNewTokenService_RejectsShortSecret(t *testing.T) {
	_, err := sec.NewTokenService("short", "optica-test", time.Hour, time.Hour)
	assert.Error(t, err)
}

/*
TestTokenService_RoundTrip verifies that issued claims survive sign+verify.
*/
func TestTokenService_RoundTrip(t *testing.T) {
	service := newTestTokenService(t, time.Hour, 24*time.Hour)

	token, err := service.GenerateAccessToken(42, "alice", "user", "session-value")
	require.NoError(t, err)

	claims, err := service.VerifyToken(token, sec.TokenAccess)
	require.NoError(t, err)

	userID, err := claims.UserID()
	require.NoError(t, err)

	assert.Equal(t, int64(42), userID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "session-value", claims.Session)
	assert.Equal(t, sec.TokenAccess, claims.Kind)
}

/*
TestTokenService_KindMismatch verifies that a refresh token can never be used
where an access token is required, and vice versa.
*/
func TestTokenService_KindMismatch(t *testing.T) {
	service := newTestTokenService(t, time.Hour, 24*time.Hour)

	accessToken, err := service.GenerateAccessToken(1, "alice", "user", "")
	require.NoError(t, err)

	refreshToken, err := service.GenerateRefreshToken(1, "alice", "user", "")
	require.NoError(t, err)

	_, err = service.VerifyToken(accessToken, sec.TokenRefresh)
	assert.Error(t, err)

	_, err = service.VerifyToken(refreshToken, sec.TokenAccess)
	assert.Error(t, err)
}

/*
TestTokenService_Expiry verifies expired tokens fail verification.
*/
func TestTokenService_Expiry(t *testing.T) {
	service := newTestTokenService(t, -time.Minute, 24*time.Hour)

	token, err := service.GenerateAccessToken(1, "alice", "user", "")
	require.NoError(t, err)

	_, err = service.VerifyToken(token, sec.TokenAccess)
	assert.Error(t, err)
}

/*
TestTokenService_TamperedSignature verifies signature validation.
*/
func TestTokenService_TamperedSignature(t *testing.T) {
	service := newTestTokenService(t, time.Hour, 24*time.Hour)

	token, err := service.GenerateAccessToken(1, "alice", "user", "")
	require.NoError(t, err)

	// Flip the last character of the signature segment.
	tampered := token[:len(token)-1]
	if token[len(token)-1] == 'A' {
		tampered += "B"
	} else {
		tampered += "A"
	}

	_, err = service.VerifyToken(tampered, sec.TokenAccess)
	assert.Error(t, err)

	other, err := sec.NewTokenService("another-secret-another-secret-ok", "optica-test", time.Hour, time.Hour)
	require.NoError(t, err)

	_, err = other.VerifyToken(token, sec.TokenAccess)
	assert.Error(t, err)
}

/*
TestAuthClaims_UserID verifies canonical string subject parsing.
*/
func TestAuthClaims_UserID(t *testing.T) {
	claims := &sec.AuthClaims{}
	claims.Subject = "not-a-number"

	_, err := claims.UserID()
	assert.Error(t, err)

	claims.Subject = "1337"
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(1337), id)
}
