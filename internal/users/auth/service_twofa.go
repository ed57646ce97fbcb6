// Copyright (c) 2026 Optica. All rights reserved.

/*
Two-factor authentication state machine.

Enrollment is two-phased: EnableTwoFA stores a pending secret (flag still
off), and VerifyTwoFA flips the flag once the operator proves possession of
the authenticator. A pending secret that never gets verified simply sits
inert; it is replaced wholesale by the next enable call.
*/

package auth

import (
	"context"
	"fmt"

	"github.com/optica-app/optica/internal/audit"
	"github.com/optica-app/optica/internal/platform/apperr"
	"github.com/optica-app/optica/internal/platform/sec"
)

// TwoFASetup carries the enrollment material returned to the client exactly
// once. The secret is never readable again after this response.
type TwoFASetup struct {
	Secret          string
	ProvisioningURI string
	QRCode          string
}

/*
EnableTwoFA begins TOTP enrollment for an account.

Description: Generates a fresh secret and stores it as pending (enabled flag
stays false until verified). Calling enable again before verification
replaces the pending secret. The audit entry is recorded with warning status
because enrollment is incomplete at this point.

Parameters:
  - context: context.Context
  - userID: int64
  - ip: string

Returns:
  - *TwoFASetup: Secret, otpauth URI, and base64 PNG QR code
  - error: Conflict when 2FA is already active
*/
func (service *Service) EnableTwoFA(context context.Context, userID int64, ip string) (*TwoFASetup, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	if user.TwoFAEnabled {
		return nil, apperr.Conflict("Two-factor authentication is already enabled")
	}

	secret, err := service.totpEngine.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("twofa_secret_generation_failed: %w", err)
	}

	// Pending state: secret stored, flag off.
	if err := service.userRepository.UpdateTwoFA(context, user.ID, false, &secret); err != nil {
		return nil, fmt.Errorf("twofa_enable_failed: %w", err)
	}

	uri := service.totpEngine.ProvisioningURI(user.Username, secret)
	qrCode, err := service.totpEngine.EnrollmentQR(uri)
	if err != nil {
		return nil, fmt.Errorf("twofa_qr_generation_failed: %w", err)
	}

	_ = service.recorder.Record(context, audit.Entry{
		Actor:       actorOf(user),
		Operation:   audit.OpTwoFAEnabled,
		TargetTable: TargetTableUsers,
		TargetID:    user.ID,
		Status:      audit.StatusWarning,
		IP:          ip,
		Details:     "enrollment started, pending verification",
	})

	return &TwoFASetup{
		Secret:          secret,
		ProvisioningURI: uri,
		QRCode:          qrCode,
	}, nil
}

/*
VerifyTwoFA completes TOTP enrollment by proving authenticator possession.

Description: A wrong code leaves the pending secret in place so the operator
can retry with the same QR code.

Parameters:
  - context: context.Context
  - userID: int64
  - code: string
  - ip: string

Returns:
  - error: PreconditionFailed when no enrollment is pending, Unauthorized on a bad code
*/
func (service *Service) VerifyTwoFA(context context.Context, userID int64, code, ip string) error {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return err
	}

	if user.TwoFASecret == nil {
		return apperr.PreconditionFailed("No two-factor enrollment is pending")
	}

	if !service.totpEngine.Verify(*user.TwoFASecret, code) {
		_ = service.recorder.Record(context, audit.Entry{
			Actor:       actorOf(user),
			Operation:   audit.OpTwoFAFailed,
			TargetTable: TargetTableUsers,
			TargetID:    user.ID,
			Status:      audit.StatusFailed,
			IP:          ip,
			Details:     "enrollment verification failed",
		})
		return apperr.Unauthorized("Invalid two-factor code")
	}

	if err := service.userRepository.UpdateTwoFA(context, user.ID, true, user.TwoFASecret); err != nil {
		return fmt.Errorf("twofa_verify_failed: %w", err)
	}

	_ = service.recorder.Record(context, audit.Entry{
		Actor:       actorOf(user),
		Operation:   audit.OpTwoFAEnabled,
		TargetTable: TargetTableUsers,
		TargetID:    user.ID,
		Status:      audit.StatusSuccess,
		IP:          ip,
	})

	return nil
}

/*
DisableTwoFA turns off the second factor after re-proving the password.

Description: Requires the account password, not a TOTP code, so a lost
authenticator does not lock the operator out of disabling the factor. The
secret is discarded entirely.

Parameters:
  - context: context.Context
  - userID: int64
  - password: string
  - ip: string

Returns:
  - error: PreconditionFailed when 2FA is not active, Unauthorized on a wrong password
*/
func (service *Service) DisableTwoFA(context context.Context, userID int64, password, ip string) error {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return err
	}

	if !user.TwoFAEnabled {
		return apperr.PreconditionFailed("Two-factor authentication is not enabled")
	}

	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		_ = service.recorder.Record(context, audit.Entry{
			Actor:       actorOf(user),
			Operation:   audit.OpTwoFADisabled,
			TargetTable: TargetTableUsers,
			TargetID:    user.ID,
			Status:      audit.StatusFailed,
			IP:          ip,
			Details:     "wrong password",
		})
		return apperr.Unauthorized("Invalid password")
	}

	if err := service.userRepository.UpdateTwoFA(context, user.ID, false, nil); err != nil {
		return fmt.Errorf("twofa_disable_failed: %w", err)
	}

	_ = service.recorder.Record(context, audit.Entry{
		Actor:       actorOf(user),
		Operation:   audit.OpTwoFADisabled,
		TargetTable: TargetTableUsers,
		TargetID:    user.ID,
		Status:      audit.StatusSuccess,
		IP:          ip,
	})

	return nil
}
