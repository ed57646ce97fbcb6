// Copyright (c) 2026 Optica. All rights reserved.

package auth

import "time"

// # Authentication Constraints

const (
	// VerificationCodeLength is the digit count of the emailed verification code.
	VerificationCodeLength = 6

	// VerificationCodeTTL is the duration an emailed verification code remains
	// valid. Short-lived (15m) because the code is low entropy.
	VerificationCodeTTL = 15 * time.Minute

	// TargetTableUsers is the audit target identifier for account rows.
	TargetTableUsers = "users"

	// FederatedUsernameAttempts bounds the uniqueness probing when deriving a
	// username from a federated email address.
	FederatedUsernameAttempts = 50
)
