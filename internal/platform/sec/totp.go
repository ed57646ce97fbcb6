// Copyright (c) 2026 Optica. All rights reserved.

package sec

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// RFC 6238 parameters shared by every mainstream authenticator app.
const (
	// totpSecretBytes is the raw entropy of a generated secret (32 base32 chars).
	totpSecretBytes = 20

	// totpPeriod is the time-step size in seconds.
	totpPeriod = 30

	// totpDigits is the length of a generated code.
	totpDigits = 6

	// totpSkew is the tolerance window in steps. 1 accepts the previous,
	// current, and next 30-second code to absorb clock drift.
	totpSkew = 1

	// qrSizePixels is the edge length of the rendered enrollment QR image.
	qrSizePixels = 256
)

// TOTPEngine generates and validates time-based one-time codes (RFC 6238).
//
// # Purity
//
// Verification is a pure, stateless computation: no storage, no network.
// Any internal error (malformed secret, bad input) yields false, never panics.
type TOTPEngine struct {
	issuer string
}

// NewTOTPEngine creates a TOTP engine with the given issuer label.
//
// The issuer is shown next to the account name in authenticator apps.
func NewTOTPEngine(issuer string) *TOTPEngine {
	return &TOTPEngine{issuer: issuer}
}

// GenerateSecret returns a fresh cryptographically random secret,
// base32-encoded without padding.
func (engine *TOTPEngine) GenerateSecret() (string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("sec: failed to generate totp secret: %w", err)
	}

	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}

// ProvisioningURI builds the otpauth:// URI consumed by authenticator apps
// during enrollment. The URI itself is deterministic and not security-sensitive.
func (engine *TOTPEngine) ProvisioningURI(account, secret string) string {
	label := url.PathEscape(engine.issuer + ":" + account)

	values := url.Values{}
	values.Set("secret", secret)
	values.Set("issuer", engine.issuer)
	values.Set("period", strconv.Itoa(totpPeriod))
	values.Set("digits", strconv.Itoa(totpDigits))
	values.Set("algorithm", "SHA1")

	return "otpauth://totp/" + label + "?" + values.Encode()
}

// EnrollmentQR renders the provisioning URI as a scannable PNG and returns it
// as a base64 data URL, ready for direct embedding in an <img> tag.
func (engine *TOTPEngine) EnrollmentQR(uri string) (string, error) {
	png, err := qrcode.Encode(uri, qrcode.Medium, qrSizePixels)
	if err != nil {
		return "", fmt.Errorf("sec: failed to render enrollment qr: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// Verify reports whether the submitted code matches the time-step code
// derived from secret at the current time, within the ±1 step skew window.
func (engine *TOTPEngine) Verify(secret, code string) bool {
	return engine.VerifyAt(secret, code, time.Now())
}

// VerifyAt is [TOTPEngine.Verify] against an explicit reference time.
//
// Malformed secrets and non-numeric or wrong-length codes return false.
func (engine *TOTPEngine) VerifyAt(secret, code string, now time.Time) bool {
	if len(code) != totpDigits || !isDigits(code) {
		return false
	}

	key, err := decodeSecret(secret)
	if err != nil {
		return false
	}

	baseCounter := now.Unix() / totpPeriod
	for step := int64(-totpSkew); step <= totpSkew; step++ {
		counter := baseCounter + step
		if counter < 0 {
			continue
		}
		expected := hotpCode(key, counter)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			return true
		}
	}

	return false
}

// CodeAt computes the code for the given time. Used for enrollment previews
// and tests; production verification goes through [TOTPEngine.VerifyAt].
func (engine *TOTPEngine) CodeAt(secret string, t time.Time) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	return hotpCode(key, t.Unix()/totpPeriod), nil
}

// decodeSecret decodes a base32 secret, tolerating missing padding.
func decodeSecret(secret string) ([]byte, error) {
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("sec: malformed totp secret: %w", err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("sec: empty totp secret")
	}
	return key, nil
}

// hotpCode computes the RFC 4226 HMAC-SHA1 truncated code for a counter.
func hotpCode(key []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	// Dynamic truncation per RFC 4226 §5.3.
	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < totpDigits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", totpDigits, bin%mod)
}

// isDigits reports whether s consists solely of ASCII digits.
func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
