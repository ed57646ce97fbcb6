// Copyright (c) 2026 Optica. All rights reserved.

/*
Package auth implements the core identity and access management system.

It handles registration with emailed verification codes, login with optional
TOTP 2FA and per-username throttling, HMAC-signed access/refresh tokens bound
to a rotating session token, federated login, and the live-session
authorization used by the HTTP middleware.

Architecture:

  - Service: Orchestrates business logic (Register, Login, 2FA, Refresh).
  - Repository: Abstracted interfaces for Postgres (Users) and Redis (Throttle).
  - Security: Bcrypt hashing, HS256 JWTs, RFC 6238 TOTP.

The package ensures that identity data remains consistent and secure
throughout the platform's lifecycle.
*/
package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/optica-app/optica/internal/audit"
	"github.com/optica-app/optica/internal/platform/apperr"
	"github.com/optica-app/optica/internal/platform/email"
	"github.com/optica-app/optica/internal/platform/idp"
	"github.com/optica-app/optica/internal/platform/sec"
)

// # Contracts & Types

// TokenProvider defines the contract for generating and verifying JWTs.
type TokenProvider interface {
	// GenerateAccessToken mints a signed access token bound to the session.
	GenerateAccessToken(userID int64, username, role, sessionToken string) (string, error)

	// GenerateRefreshToken mints a signed refresh token bound to the session.
	GenerateRefreshToken(userID int64, username, role, sessionToken string) (string, error)

	// VerifyToken validates signature, expiry, and the kind discriminator.
	VerifyToken(tokenString string, expectedKind sec.TokenKind) (*sec.AuthClaims, error)
}

// Service implements the authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, session
// rotation, or 2FA logic must be reviewed by the security team.
type Service struct {
	userRepository UserRepository
	loginThrottle  LoginThrottle
	tokenProvider  TokenProvider
	totpEngine     *sec.TOTPEngine
	recorder       *audit.Recorder
	mailer         email.Mailer
	logger         *slog.Logger

	attemptLimit  int
	attemptWindow time.Duration
}

// NewService constructs the auth [Service] with its dependencies.
func NewService(
	userRepo UserRepository,
	throttle LoginThrottle,
	tokenProv TokenProvider,
	totpEngine *sec.TOTPEngine,
	recorder *audit.Recorder,
	mailer email.Mailer,
	logger *slog.Logger,
	attemptLimit int,
	attemptWindow time.Duration,
) *Service {
	return &Service{
		userRepository: userRepo,
		loginThrottle:  throttle,
		tokenProvider:  tokenProv,
		totpEngine:     totpEngine,
		recorder:       recorder,
		mailer:         mailer,
		logger:         logger,
		attemptLimit:   attemptLimit,
		attemptWindow:  attemptWindow,
	}
}

// actorOf snapshots a user entity as an audit actor.
func actorOf(user *User) *audit.Actor {
	return &audit.Actor{ID: user.ID, Username: user.Username, Role: string(user.Role)}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	IP       string
}

/*
Register validates, hashes, and persists a brand new account.

Description: Runs the password strength policy BEFORE uniqueness checks (the
strength verdict never depends on whether the identity exists), creates the
account unverified, and dispatches the 6-digit email code. A failed email
send is logged but never aborts the registration.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - error: Validation, Conflict (leaks existence; accepted trade-off), or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*User, error) {

	// Strength policy first. Specials are advisory only and never reject.
	if ok, message := sec.CheckPasswordStrength(input.Password); !ok {
		return nil, apperr.ValidationError(message)
	}

	// Verify username uniqueness. Return a client-safe Conflict error.
	if _, err := service.userRepository.FindByUsername(context, input.Username); err == nil {
		_ = service.recorder.Record(context, audit.Entry{
			Username:  input.Username,
			Operation: audit.OpRegistration,
			Status:    audit.StatusFailed,
			IP:        input.IP,
			Details:   "username already taken",
		})
		return nil, apperr.Conflict("Username is already taken")
	}

	// Verify email uniqueness.
	if _, err := service.userRepository.FindByEmail(context, input.Email); err == nil {
		_ = service.recorder.Record(context, audit.Entry{
			Username:  input.Username,
			Operation: audit.OpRegistration,
			Status:    audit.StatusFailed,
			IP:        input.IP,
			Details:   "email already registered",
		})
		return nil, apperr.Conflict("Email is already registered")
	}

	// Prevent storing plain-text passwords. Default cost balances security
	// against CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// Generate the emailed verification code with its short expiry.
	code, err := generateVerificationCode()
	if err != nil {
		return nil, fmt.Errorf("auth_service_verification_code_failed: %w", err)
	}
	expiry := time.Now().UTC().Add(VerificationCodeTTL)

	user := &User{
		Username:           input.Username,
		Email:              input.Email,
		PasswordHash:       hashedPassword,
		Role:               sec.RoleUser,
		IsActive:           true,
		EmailVerified:      false,
		VerificationCode:   &code,
		VerificationExpiry: &expiry,
	}

	// Persist the account.
	if err := service.userRepository.Create(context, user); err != nil {
		return nil, err
	}

	// Dispatch the code. Delivery failure must not abort the registration.
	if err := service.mailer.SendVerificationCode(context, user.Email, user.Username, code); err != nil {
		service.logger.ErrorContext(context, "verification_email_send_failed",
			slog.String("username", user.Username),
			slog.Any("error", err),
		)
	}

	_ = service.recorder.Record(context, audit.Entry{
		Actor:       actorOf(user),
		Operation:   audit.OpRegistration,
		TargetTable: TargetTableUsers,
		TargetID:    user.ID,
		Status:      audit.StatusSuccess,
		IP:          input.IP,
	})

	return user, nil
}

/*
VerifyEmail confirms an account's email address using the emailed code.

Description: Idempotent on already-verified accounts. Expiry is compared in
UTC; a mismatching or expired code leaves the pending state untouched.

Parameters:
  - context: context.Context
  - username: string
  - code: string
  - ip: string

Returns:
  - error: NotFound, PreconditionFailed, Validation, or storage errors
*/
func (service *Service) VerifyEmail(context context.Context, username, code, ip string) error {
	user, err := service.userRepository.FindByUsername(context, username)
	if err != nil {
		return err
	}

	// Re-verification is a no-op, not an error.
	if user.EmailVerified {
		return nil
	}

	if user.VerificationCode == nil {
		return apperr.PreconditionFailed("No verification is pending for this account")
	}

	if user.VerificationExpiry == nil || time.Now().UTC().After(user.VerificationExpiry.UTC()) {
		return apperr.ValidationError("Verification code has expired")
	}

	if *user.VerificationCode != code {
		return apperr.ValidationError("Invalid verification code")
	}

	if err := service.userRepository.MarkVerified(context, user.ID); err != nil {
		return fmt.Errorf("auth_service_verify_email_failed: %w", err)
	}

	_ = service.recorder.Record(context, audit.Entry{
		Actor:       actorOf(user),
		Operation:   audit.OpEmailVerified,
		TargetTable: TargetTableUsers,
		TargetID:    user.ID,
		Status:      audit.StatusSuccess,
		IP:          ip,
	})

	return nil
}

/*
ResendVerification regenerates and re-dispatches the verification code.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - error: NotFound, PreconditionFailed, or storage errors
*/
func (service *Service) ResendVerification(context context.Context, username string) error {
	user, err := service.userRepository.FindByUsername(context, username)
	if err != nil {
		return err
	}

	if user.EmailVerified {
		return apperr.PreconditionFailed("Email is already verified")
	}

	code, err := generateVerificationCode()
	if err != nil {
		return fmt.Errorf("auth_service_verification_code_failed: %w", err)
	}
	expiry := time.Now().UTC().Add(VerificationCodeTTL)

	if err := service.userRepository.SetVerification(context, user.ID, code, expiry); err != nil {
		return fmt.Errorf("auth_service_resend_verification_failed: %w", err)
	}

	if err := service.mailer.SendVerificationCode(context, user.Email, user.Username, code); err != nil {
		service.logger.ErrorContext(context, "verification_email_send_failed",
			slog.String("username", user.Username),
			slog.Any("error", err),
		)
	}

	return nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Username string
	Password string
	TOTPCode string
	IP       string
}

// LoginSession represents a successfully established login.
type LoginSession struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

/*
Login validates credentials and issues a fresh token pair.

Description: Applies the per-username+IP throttle, the account state gates
(verified, active, unblocked), and the optional TOTP factor. On success the
session token is rotated, which retroactively invalidates every previously
issued token for this account.

Failure messaging is deliberately generic ("Invalid username or password")
for both unknown users and wrong passwords, so login cannot be used to
enumerate accounts.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Tokens plus the account
  - error: Unauthorized, Forbidden, RateLimited, Validation, or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {

	// Throttle gate. Redis trouble is logged and treated as a clean slate so
	// a cache outage cannot lock everybody out.
	failures, err := service.loginThrottle.Failures(context, input.Username, input.IP)
	if err != nil {
		service.logger.WarnContext(context, "login_throttle_unavailable", slog.Any("error", err))
		failures = 0
	}
	if failures >= service.attemptLimit {
		return nil, apperr.RateLimited(int(service.attemptWindow.Seconds()))
	}

	user, err := service.userRepository.FindByUsername(context, input.Username)
	if err != nil {
		service.registerLoginFailure(context, nil, input.Username, input.IP, "unknown username")
		return nil, apperr.Unauthorized("Invalid username or password")
	}

	// Constant-time comparison inside bcrypt prevents timing attacks.
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		service.registerLoginFailure(context, user, user.Username, input.IP, "wrong password")
		return nil, apperr.Unauthorized("Invalid username or password")
	}

	// Account state gates. These messages are specific: at this point the
	// caller has already proven knowledge of the password.
	if !user.EmailVerified {
		service.registerLoginFailure(context, user, user.Username, input.IP, "email not verified")
		return nil, apperr.Forbidden("Email address is not verified")
	}
	if !user.IsActive {
		service.registerLoginFailure(context, user, user.Username, input.IP, "account deactivated")
		return nil, apperr.Forbidden("Account is deactivated")
	}
	if user.IsBlocked {
		service.registerLoginFailure(context, user, user.Username, input.IP, "account blocked")
		return nil, apperr.Forbidden("Account is blocked")
	}

	// Second factor.
	if user.TwoFAEnabled {
		if input.TOTPCode == "" {
			return nil, apperr.ValidationError("Two-factor code is required")
		}
		if user.TwoFASecret == nil || !service.totpEngine.Verify(*user.TwoFASecret, input.TOTPCode) {
			if err := service.loginThrottle.RegisterFailure(context, input.Username, input.IP, service.attemptWindow); err != nil {
				service.logger.WarnContext(context, "login_throttle_unavailable", slog.Any("error", err))
			}
			_ = service.recorder.Record(context, audit.Entry{
				Actor:       actorOf(user),
				Operation:   audit.OpTwoFAFailed,
				TargetTable: TargetTableUsers,
				TargetID:    user.ID,
				Status:      audit.StatusFailed,
				IP:          input.IP,
			})
			return nil, apperr.Unauthorized("Invalid two-factor code")
		}
	}

	// Success: clear the throttle and establish the rotated session.
	if err := service.loginThrottle.Reset(context, input.Username, input.IP); err != nil {
		service.logger.WarnContext(context, "login_throttle_unavailable", slog.Any("error", err))
	}

	session, err := service.establishSession(context, user, input.IP, "")
	if err != nil {
		return nil, err
	}

	return session, nil
}

// registerLoginFailure bumps the throttle and audits a LOGIN_FAILED event.
func (service *Service) registerLoginFailure(context context.Context, user *User, username, ip, reason string) {
	if err := service.loginThrottle.RegisterFailure(context, username, ip, service.attemptWindow); err != nil {
		service.logger.WarnContext(context, "login_throttle_unavailable", slog.Any("error", err))
	}

	entry := audit.Entry{
		Username:  username,
		Operation: audit.OpLoginFailed,
		Status:    audit.StatusFailed,
		IP:        ip,
		Details:   reason,
	}
	if user != nil {
		entry.Actor = actorOf(user)
		entry.TargetTable = TargetTableUsers
		entry.TargetID = user.ID
	}
	_ = service.recorder.Record(context, entry)
}

// establishSession rotates the session token, stamps last_login, issues the
// token pair, and audits LOGIN_SUCCESS. Shared tail of local and federated
// login.
func (service *Service) establishSession(context context.Context, user *User, ip, details string) (*LoginSession, error) {
	sessionToken, err := sec.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("auth_service_session_token_failed: %w", err)
	}

	now := time.Now().UTC()
	if err := service.userRepository.RecordLogin(context, user.ID, sessionToken, now); err != nil {
		return nil, fmt.Errorf("auth_service_record_login_failed: %w", err)
	}
	user.SessionToken = &sessionToken
	user.LastLogin = &now

	accessToken, err := service.tokenProvider.GenerateAccessToken(user.ID, user.Username, string(user.Role), sessionToken)
	if err != nil {
		return nil, fmt.Errorf("auth_service_access_token_failed: %w", err)
	}

	refreshToken, err := service.tokenProvider.GenerateRefreshToken(user.ID, user.Username, string(user.Role), sessionToken)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_token_failed: %w", err)
	}

	_ = service.recorder.Record(context, audit.Entry{
		Actor:       actorOf(user),
		Operation:   audit.OpLoginSuccess,
		TargetTable: TargetTableUsers,
		TargetID:    user.ID,
		Status:      audit.StatusSuccess,
		IP:          ip,
		Details:     details,
	})

	return &LoginSession{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// # Session Management

/*
Refresh exchanges a valid refresh token for a new access token.

Description: Verifies the token's signature and refresh kind, reloads the
account, and gates on its live state. The refresh token's session claim is
carried forward unchanged into the new access token: if the session rotated
since the refresh token was issued, the new access token will fail the
binding check, which is the desired invalidation behavior. An absent session
claim is carried as absent, not rejected.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - string: New access token
  - error: Unauthorized or Forbidden
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (string, error) {
	claims, err := service.tokenProvider.VerifyToken(refreshToken, sec.TokenRefresh)
	if err != nil {
		return "", apperr.Unauthorized("Invalid or expired refresh token")
	}

	userID, err := claims.UserID()
	if err != nil {
		return "", apperr.Unauthorized("Invalid or expired refresh token")
	}

	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return "", apperr.Unauthorized("Invalid or expired refresh token")
	}

	if !user.IsActive {
		return "", apperr.Forbidden("Account is deactivated")
	}
	if user.IsBlocked {
		return "", apperr.Forbidden("Account is blocked")
	}

	accessToken, err := service.tokenProvider.GenerateAccessToken(user.ID, user.Username, string(user.Role), claims.Session)
	if err != nil {
		return "", fmt.Errorf("auth_service_refresh_access_token_failed: %w", err)
	}

	return accessToken, nil
}

/*
Logout records the end of a session in the audit trail.

Description: Logout does NOT revoke tokens. There is no blacklist; the next
login's session rotation is the sole revocation mechanism. The operation
exists so the trail shows when operators signed off.

Parameters:
  - context: context.Context
  - actor: *audit.Actor
  - ip: string

Returns:
  - error: Always nil (audit failure is swallowed by policy)
*/
func (service *Service) Logout(context context.Context, actor *audit.Actor, ip string) error {
	_ = service.recorder.Record(context, audit.Entry{
		Actor:     actor,
		Operation: audit.OpLogout,
		Status:    audit.StatusSuccess,
		IP:        ip,
	})
	return nil
}

/*
Me returns the live account behind an authenticated request.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - *User: Hydrated entity
  - error: NotFound or retrieval failures
*/
func (service *Service) Me(context context.Context, userID int64) (*User, error) {
	return service.userRepository.FindByID(context, userID)
}

/*
AuthorizeSession validates the live state of an account behind a token.

Description: Implements the middleware session-binding gate: the account must
exist, be active and unblocked, and the token's session claim must equal the
stored session token. Tokens minted before the last rotation therefore fail
here despite a valid signature and expiry.

Parameters:
  - context: context.Context
  - userID: int64
  - sessionToken: string

Returns:
  - error: apperr.Unauthorized on any gate failure
*/
func (service *Service) AuthorizeSession(context context.Context, userID int64, sessionToken string) error {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return apperr.Unauthorized("Invalid or expired token")
	}

	if !user.IsActive || user.IsBlocked {
		return apperr.Unauthorized("Account is no longer active")
	}

	if user.SessionToken == nil || *user.SessionToken != sessionToken {
		return apperr.Unauthorized("Session is no longer valid")
	}

	return nil
}

// # Federated Login

/*
FederatedLogin signs in (or enrolls) an account from a verified provider identity.

Description: The identity's email has already been verified by the provider.
Unknown emails get a fresh account with a derived unique username, an
unusable random password hash, and role user. The tail is identical to local
login: session rotation, token issuance, LOGIN_SUCCESS audit.

Parameters:
  - context: context.Context
  - identity: *idp.Identity
  - ip: string

Returns:
  - *LoginSession: Tokens plus the account
  - error: Forbidden (blocked/deactivated) or storage failures
*/
func (service *Service) FederatedLogin(context context.Context, identity *idp.Identity, ip string) (*LoginSession, error) {
	user, err := service.userRepository.FindByEmail(context, identity.Email)
	if err != nil {
		user, err = service.enrollFederated(context, identity)
		if err != nil {
			return nil, err
		}
	}

	if !user.IsActive {
		return nil, apperr.Forbidden("Account is deactivated")
	}
	if user.IsBlocked {
		return nil, apperr.Forbidden("Account is blocked")
	}

	return service.establishSession(context, user, ip, "federated login")
}

// enrollFederated creates a local account for a first-time federated identity.
func (service *Service) enrollFederated(context context.Context, identity *idp.Identity) (*User, error) {
	username, err := service.deriveUsername(context, identity.Email)
	if err != nil {
		return nil, err
	}

	// The account can never log in with a password: the hash input is random
	// and discarded.
	unusable, err := sec.GenerateUnusablePassword()
	if err != nil {
		return nil, fmt.Errorf("auth_service_federated_password_failed: %w", err)
	}
	hashedPassword, err := sec.HashPassword(unusable)
	if err != nil {
		return nil, fmt.Errorf("auth_service_federated_hash_failed: %w", err)
	}

	user := &User{
		Username:      username,
		Email:         identity.Email,
		PasswordHash:  hashedPassword,
		Role:          sec.RoleUser,
		IsActive:      true,
		EmailVerified: true, // Verified by the provider.
	}

	if err := service.userRepository.Create(context, user); err != nil {
		return nil, err
	}

	_ = service.recorder.Record(context, audit.Entry{
		Actor:       actorOf(user),
		Operation:   audit.OpRegistration,
		TargetTable: TargetTableUsers,
		TargetID:    user.ID,
		Status:      audit.StatusSuccess,
		Details:     "federated enrollment",
	})

	return user, nil
}

// deriveUsername turns an email's local part into a unique username by
// probing with numeric suffixes.
func (service *Service) deriveUsername(context context.Context, emailAddress string) (string, error) {
	base := strings.ToLower(strings.SplitN(emailAddress, "@", 2)[0])
	base = sanitizeUsername(base)
	if base == "" {
		base = "user"
	}

	candidate := base
	for attempt := 1; attempt <= FederatedUsernameAttempts; attempt++ {
		if _, err := service.userRepository.FindByUsername(context, candidate); err != nil {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, attempt)
	}

	return "", fmt.Errorf("auth_service_username_derivation_exhausted: base %q", base)
}

// sanitizeUsername keeps only lowercase letters, digits, and underscores.
func sanitizeUsername(s string) string {
	var builder strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// # Helpers

// generateVerificationCode returns a zero-padded 6-digit numeric code from
// crypto/rand.
func generateVerificationCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < VerificationCodeLength; i++ {
		limit.Mul(limit, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("verification_code_generation_failed: %w", err)
	}

	return fmt.Sprintf("%0*d", VerificationCodeLength, n), nil
}
