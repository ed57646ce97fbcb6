// Copyright (c) 2026 Optica. All rights reserved.

package sec_test

import (
	"encoding/base32"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optica-app/optica/internal/platform/sec"
)

/*
TestTOTP_RFC6238Vectors verifies code derivation against the published
SHA-1 test vectors (RFC 6238 Appendix B, truncated to 6 digits).
*/
func TestTOTP_RFC6238Vectors(t *testing.T) {
	engine := sec.NewTOTPEngine("Optica")
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).
		EncodeToString([]byte("12345678901234567890"))

	tests := []struct {
		ts   int64
		code string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
		{20000000000, "353130"},
	}

	for _, tt := range tests {
		code, err := engine.CodeAt(secret, time.Unix(tt.ts, 0))
		require.NoError(t, err)
		assert.Equal(t, tt.code, code, "at t=%d", tt.ts)

		assert.True(t, engine.VerifyAt(secret, tt.code, time.Unix(tt.ts, 0)), "at t=%d", tt.ts)
	}
}

/*
TestTOTP_SkewWindow verifies the ±1 step tolerance: a code generated for time
T is accepted at T and T±30s but rejected at T±90s.
*/
func TestTOTP_SkewWindow(t *testing.T) {
	engine := sec.NewTOTPEngine("Optica")

	secret, err := engine.GenerateSecret()
	require.NoError(t, err)

	// Step-aligned reference time keeps the boundaries unambiguous.
	reference := time.Unix(1700000040, 0)

	code, err := engine.CodeAt(secret, reference)
	require.NoError(t, err)

	assert.True(t, engine.VerifyAt(secret, code, reference))
	assert.True(t, engine.VerifyAt(secret, code, reference.Add(30*time.Second)))
	assert.True(t, engine.VerifyAt(secret, code, reference.Add(-30*time.Second)))

	assert.False(t, engine.VerifyAt(secret, code, reference.Add(90*time.Second)))
	assert.False(t, engine.VerifyAt(secret, code, reference.Add(-90*time.Second)))
}

/*
TestTOTP_MalformedInput verifies that bad secrets and bad codes yield false,
never a panic or an error surfaced to the caller.
*/
func TestTOTP_MalformedInput(t *testing.T) {
	engine := sec.NewTOTPEngine("Optica")
	now := time.Now()

	assert.False(t, engine.VerifyAt("not base32 !!!", "123456", now))
	assert.False(t, engine.VerifyAt("", "123456", now))

	secret, err := engine.GenerateSecret()
	require.NoError(t, err)

	assert.False(t, engine.VerifyAt(secret, "", now))
	assert.False(t, engine.VerifyAt(secret, "12345", now))
	assert.False(t, engine.VerifyAt(secret, "1234567", now))
	assert.False(t, engine.VerifyAt(secret, "12345a", now))
}

/*
TestTOTP_ProvisioningURI verifies the otpauth URI shape consumed by
authenticator apps.
*/
func TestTOTP_ProvisioningURI(t *testing.T) {
	engine := sec.NewTOTPEngine("Optica")

	uri := engine.ProvisioningURI("alice", "JBSWY3DPEHPK3PXP")

	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/Optica:alice?"))
	assert.Contains(t, uri, "secret=JBSWY3DPEHPK3PXP")
	assert.Contains(t, uri, "issuer=Optica")
	assert.Contains(t, uri, "period=30")
	assert.Contains(t, uri, "digits=6")
}

/*
TestTOTP_EnrollmentQR verifies QR rendering produces a PNG data URL.
*/
func TestTOTP_EnrollmentQR(t *testing.T) {
	engine := sec.NewTOTPEngine("Optica")

	uri := engine.ProvisioningURI("alice", "JBSWY3DPEHPK3PXP")
	dataURL, err := engine.EnrollmentQR(uri)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(dataURL, "data:image/png;base64,"))
	assert.Greater(t, len(dataURL), len("data:image/png;base64,"))
}
