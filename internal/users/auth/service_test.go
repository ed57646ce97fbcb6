// Copyright (c) 2026 Optica. All rights reserved.

package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optica-app/optica/internal/audit"
	"github.com/optica-app/optica/internal/platform/apperr"
	"github.com/optica-app/optica/internal/platform/idp"
	"github.com/optica-app/optica/internal/platform/sec"
	"github.com/optica-app/optica/pkg/pagination"
)

// # Fakes

type fakeUserRepo struct {
	users  map[int64]*User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*User), nextID: 1}
}

func (repo *fakeUserRepo) Create(_ context.Context, user *User) error {
	for _, existing := range repo.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return apperr.Conflict("Username or email is already in use")
		}
	}
	user.ID = repo.nextID
	repo.nextID++
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	repo.users[user.ID] = &clone
	return nil
}

func (repo *fakeUserRepo) FindByID(_ context.Context, id int64) (*User, error) {
	user, ok := repo.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

func (repo *fakeUserRepo) FindByUsername(_ context.Context, username string) (*User, error) {
	for _, user := range repo.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, user := range repo.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepo) List(_ context.Context, params pagination.Params) ([]User, int, error) {
	users := make([]User, 0, len(repo.users))
	for _, user := range repo.users {
		users = append(users, *user)
	}
	return users, len(users), nil
}

func (repo *fakeUserRepo) Update(_ context.Context, user *User) error {
	stored, ok := repo.users[user.ID]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.Email = user.Email
	stored.Role = user.Role
	stored.IsActive = user.IsActive
	stored.IsBlocked = user.IsBlocked
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *fakeUserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	stored, ok := repo.users[id]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.PasswordHash = passwordHash
	return nil
}

func (repo *fakeUserRepo) RecordLogin(_ context.Context, id int64, sessionToken string, at time.Time) error {
	stored, ok := repo.users[id]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.SessionToken = &sessionToken
	stored.LastLogin = &at
	return nil
}

func (repo *fakeUserRepo) UpdateSessionToken(_ context.Context, id int64, sessionToken string) error {
	stored, ok := repo.users[id]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.SessionToken = &sessionToken
	return nil
}

func (repo *fakeUserRepo) SetVerification(_ context.Context, id int64, code string, expiry time.Time) error {
	stored, ok := repo.users[id]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.VerificationCode = &code
	stored.VerificationExpiry = &expiry
	return nil
}

func (repo *fakeUserRepo) MarkVerified(_ context.Context, id int64) error {
	stored, ok := repo.users[id]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.EmailVerified = true
	stored.VerificationCode = nil
	stored.VerificationExpiry = nil
	return nil
}

func (repo *fakeUserRepo) UpdateTwoFA(_ context.Context, id int64, enabled bool, secret *string) error {
	stored, ok := repo.users[id]
	if !ok {
		return apperr.NotFound("User")
	}
	stored.TwoFAEnabled = enabled
	stored.TwoFASecret = secret
	return nil
}

func (repo *fakeUserRepo) Delete(_ context.Context, id int64) error {
	if _, ok := repo.users[id]; !ok {
		return apperr.NotFound("User")
	}
	delete(repo.users, id)
	return nil
}

type fakeThrottle struct {
	counts      map[string]int
	unavailable error
}

func newFakeThrottle() *fakeThrottle {
	return &fakeThrottle{counts: make(map[string]int)}
}

func (throttle *fakeThrottle) key(username, ip string) string { return username + ":" + ip }

func (throttle *fakeThrottle) Failures(_ context.Context, username, ip string) (int, error) {
	if throttle.unavailable != nil {
		return 0, throttle.unavailable
	}
	return throttle.counts[throttle.key(username, ip)], nil
}

func (throttle *fakeThrottle) RegisterFailure(_ context.Context, username, ip string, _ time.Duration) error {
	if throttle.unavailable != nil {
		return throttle.unavailable
	}
	throttle.counts[throttle.key(username, ip)]++
	return nil
}

func (throttle *fakeThrottle) Reset(_ context.Context, username, ip string) error {
	if throttle.unavailable != nil {
		return throttle.unavailable
	}
	delete(throttle.counts, throttle.key(username, ip))
	return nil
}

type fakeMailer struct {
	sent    []string
	sendErr error
}

func (mailer *fakeMailer) SendVerificationCode(_ context.Context, recipient, _, code string) error {
	if mailer.sendErr != nil {
		return mailer.sendErr
	}
	mailer.sent = append(mailer.sent, recipient+":"+code)
	return nil
}

// stubTokenProvider encodes claims into a pipe-delimited string so tests can
// assert on the embedded session without real signing.
type stubTokenProvider struct{}

func (stubTokenProvider) GenerateAccessToken(userID int64, username, role, sessionToken string) (string, error) {
	return fmt.Sprintf("access|%d|%s|%s|%s", userID, username, role, sessionToken), nil
}

func (stubTokenProvider) GenerateRefreshToken(userID int64, username, role, sessionToken string) (string, error) {
	return fmt.Sprintf("refresh|%d|%s|%s|%s", userID, username, role, sessionToken), nil
}

func (stubTokenProvider) VerifyToken(tokenString string, expectedKind sec.TokenKind) (*sec.AuthClaims, error) {
	parts := strings.SplitN(tokenString, "|", 5)
	if len(parts) != 5 || parts[0] != string(expectedKind) {
		return nil, errors.New("token_kind_mismatch")
	}
	return &sec.AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: parts[1]},
		Username:         parts[2],
		Role:             parts[3],
		Session:          parts[4],
		Kind:             expectedKind,
	}, nil
}

type fakeAuditStore struct {
	events    []audit.Event
	insertErr error
}

func (store *fakeAuditStore) Insert(_ context.Context, event *audit.Event) error {
	if store.insertErr != nil {
		return store.insertErr
	}
	event.ID = int64(len(store.events) + 1)
	store.events = append(store.events, *event)
	return nil
}

func (store *fakeAuditStore) FindByID(_ context.Context, _ int64) (*audit.Event, error) {
	return nil, errors.New("not implemented")
}

func (store *fakeAuditStore) List(_ context.Context, _ audit.Filter, _ pagination.Params) ([]audit.Event, int, error) {
	return store.events, len(store.events), nil
}

func (store *fakeAuditStore) Summarize(_ context.Context, _, _ *time.Time) (*audit.Summary, error) {
	return &audit.Summary{Total: len(store.events)}, nil
}

func (store *fakeAuditStore) operations() []audit.Operation {
	ops := make([]audit.Operation, 0, len(store.events))
	for _, event := range store.events {
		ops = append(ops, event.Operation)
	}
	return ops
}

// # Harness

type serviceHarness struct {
	service    *Service
	userRepo   *fakeUserRepo
	throttle   *fakeThrottle
	mailer     *fakeMailer
	auditStore *fakeAuditStore
	totpEngine *sec.TOTPEngine
}

func newServiceHarness(t *testing.T) *serviceHarness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	userRepo := newFakeUserRepo()
	throttle := newFakeThrottle()
	mailer := &fakeMailer{}
	auditStore := &fakeAuditStore{}
	totpEngine := sec.NewTOTPEngine("Optica")

	service := NewService(
		userRepo,
		throttle,
		stubTokenProvider{},
		totpEngine,
		audit.NewRecorder(auditStore, logger),
		mailer,
		logger,
		5,
		5*time.Minute,
	)

	return &serviceHarness{
		service:    service,
		userRepo:   userRepo,
		throttle:   throttle,
		mailer:     mailer,
		auditStore: auditStore,
		totpEngine: totpEngine,
	}
}

const testPassword = "Sturdy-Passw0rd"

// requireAppErr asserts that err carries an [*apperr.AppError] and returns it.
func requireAppErr(t *testing.T, err error) *apperr.AppError {
	t.Helper()
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	return appErr
}

func (h *serviceHarness) seedUser(t *testing.T, username string, mutate func(*User)) *User {
	t.Helper()

	hash, err := sec.HashPassword(testPassword)
	require.NoError(t, err)

	user := &User{
		Username:      username,
		Email:         username + "@example.com",
		PasswordHash:  hash,
		Role:          sec.RoleUser,
		IsActive:      true,
		EmailVerified: true,
	}
	if mutate != nil {
		mutate(user)
	}
	require.NoError(t, h.userRepo.Create(context.Background(), user))
	return h.userRepo.users[user.ID]
}

// # Registration

func TestRegister_StrengthBeforeUniqueness(t *testing.T) {
	h := newServiceHarness(t)
	h.seedUser(t, "margaret", nil)

	// Weak password against a taken username must fail on strength, so the
	// error never confirms the username exists.
	_, err := h.service.Register(context.Background(), RegisterInput{
		Username: "margaret",
		Email:    "other@example.com",
		Password: "short",
	})

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestRegister_Success(t *testing.T) {
	h := newServiceHarness(t)

	user, err := h.service.Register(context.Background(), RegisterInput{
		Username: "newcomer",
		Email:    "newcomer@example.com",
		Password: testPassword,
		IP:       "10.0.0.1",
	})
	require.NoError(t, err)

	assert.False(t, user.EmailVerified)
	assert.Equal(t, sec.RoleUser, user.Role)
	require.NotNil(t, user.VerificationCode)
	assert.Len(t, *user.VerificationCode, VerificationCodeLength)

	require.Len(t, h.mailer.sent, 1)
	assert.Equal(t, "newcomer@example.com:"+*user.VerificationCode, h.mailer.sent[0])

	assert.Contains(t, h.auditStore.operations(), audit.OpRegistration)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	h := newServiceHarness(t)
	h.seedUser(t, "margaret", nil)

	_, err := h.service.Register(context.Background(), RegisterInput{
		Username: "margaret",
		Email:    "fresh@example.com",
		Password: testPassword,
	})

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)
}

func TestRegister_MailerFailureDoesNotAbort(t *testing.T) {
	h := newServiceHarness(t)
	h.mailer.sendErr = errors.New("smtp down")

	user, err := h.service.Register(context.Background(), RegisterInput{
		Username: "newcomer",
		Email:    "newcomer@example.com",
		Password: testPassword,
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
}

// # Email Verification

func TestVerifyEmail_Success(t *testing.T) {
	h := newServiceHarness(t)
	code := "123456"
	expiry := time.Now().UTC().Add(10 * time.Minute)
	h.seedUser(t, "pending", func(u *User) {
		u.EmailVerified = false
		u.VerificationCode = &code
		u.VerificationExpiry = &expiry
	})

	require.NoError(t, h.service.VerifyEmail(context.Background(), "pending", "123456", "10.0.0.1"))

	stored, err := h.userRepo.FindByUsername(context.Background(), "pending")
	require.NoError(t, err)
	assert.True(t, stored.EmailVerified)
	assert.Nil(t, stored.VerificationCode)
	assert.Contains(t, h.auditStore.operations(), audit.OpEmailVerified)
}

func TestVerifyEmail_AlreadyVerifiedIsIdempotent(t *testing.T) {
	h := newServiceHarness(t)
	h.seedUser(t, "margaret", nil)

	assert.NoError(t, h.service.VerifyEmail(context.Background(), "margaret", "000000", "10.0.0.1"))
}

func TestVerifyEmail_Expired(t *testing.T) {
	h := newServiceHarness(t)
	code := "123456"
	expiry := time.Now().UTC().Add(-1 * time.Minute)
	h.seedUser(t, "pending", func(u *User) {
		u.EmailVerified = false
		u.VerificationCode = &code
		u.VerificationExpiry = &expiry
	})

	err := h.service.VerifyEmail(context.Background(), "pending", "123456", "10.0.0.1")

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestVerifyEmail_WrongCodeKeepsPendingState(t *testing.T) {
	h := newServiceHarness(t)
	code := "123456"
	expiry := time.Now().UTC().Add(10 * time.Minute)
	h.seedUser(t, "pending", func(u *User) {
		u.EmailVerified = false
		u.VerificationCode = &code
		u.VerificationExpiry = &expiry
	})

	err := h.service.VerifyEmail(context.Background(), "pending", "654321", "10.0.0.1")
	require.Error(t, err)

	stored, findErr := h.userRepo.FindByUsername(context.Background(), "pending")
	require.NoError(t, findErr)
	assert.False(t, stored.EmailVerified)
	require.NotNil(t, stored.VerificationCode)
	assert.Equal(t, "123456", *stored.VerificationCode)
}

func TestVerifyEmail_NoPendingVerification(t *testing.T) {
	h := newServiceHarness(t)
	h.seedUser(t, "bare", func(u *User) {
		u.EmailVerified = false
	})

	err := h.service.VerifyEmail(context.Background(), "bare", "123456", "10.0.0.1")

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "PRECONDITION_FAILED", appErr.Code)
}

// # Login

func TestLogin_SuccessRotatesSession(t *testing.T) {
	h := newServiceHarness(t)
	oldSession := "stale-session-token"
	user := h.seedUser(t, "margaret", func(u *User) {
		u.SessionToken = &oldSession
	})

	session, err := h.service.Login(context.Background(), LoginInput{
		Username: "margaret",
		Password: testPassword,
		IP:       "10.0.0.1",
	})
	require.NoError(t, err)

	require.NotNil(t, session.User.SessionToken)
	assert.NotEqual(t, oldSession, *session.User.SessionToken)
	assert.Contains(t, session.AccessToken, *session.User.SessionToken)

	// Tokens bound to the pre-rotation session no longer authorize.
	err = h.service.AuthorizeSession(context.Background(), user.ID, oldSession)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)

	// The freshly rotated session does.
	assert.NoError(t, h.service.AuthorizeSession(context.Background(), user.ID, *session.User.SessionToken))
	assert.Contains(t, h.auditStore.operations(), audit.OpLoginSuccess)
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newServiceHarness(t)
	h.seedUser(t, "margaret", nil)

	_, err := h.service.Login(context.Background(), LoginInput{
		Username: "margaret",
		Password: "Wrong-Passw0rd",
		IP:       "10.0.0.1",
	})

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
	assert.Equal(t, "Invalid username or password", appErr.Message)
	assert.Equal(t, 1, h.throttle.counts["margaret:10.0.0.1"])
	assert.Contains(t, h.auditStore.operations(), audit.OpLoginFailed)
}

func TestLogin_UnknownUserSameMessageAsWrongPassword(t *testing.T) {
	h := newServiceHarness(t)

	_, err := h.service.Login(context.Background(), LoginInput{
		Username: "ghost",
		Password: testPassword,
		IP:       "10.0.0.1",
	})

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "Invalid username or password", appErr.Message)
}

func TestLogin_ThrottledAfterLimit(t *testing.T) {
	h := newServiceHarness(t)
	h.seedUser(t, "margaret", nil)

	for i := 0; i < 5; i++ {
		_, err := h.service.Login(context.Background(), LoginInput{
			Username: "margaret",
			Password: "Wrong-Passw0rd",
			IP:       "10.0.0.1",
		})
		require.Error(t, err)
	}

	// Sixth attempt is rejected before the password is even checked.
	_, err := h.service.Login(context.Background(), LoginInput{
		Username: "margaret",
		Password: testPassword,
		IP:       "10.0.0.1",
	})

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "RATE_LIMITED", appErr.Code)
}

func TestLogin_ThrottleOutageFailsOpen(t *testing.T) {
	h := newServiceHarness(t)
	h.seedUser(t, "margaret", nil)
	h.throttle.unavailable = errors.New("redis down")

	_, err := h.service.Login(context.Background(), LoginInput{
		Username: "margaret",
		Password: testPassword,
		IP:       "10.0.0.1",
	})
	assert.NoError(t, err)
}

func TestLogin_AccountStateGates(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*User)
		message string
	}{
		{"unverified email", func(u *User) { u.EmailVerified = false }, "Email address is not verified"},
		{"deactivated", func(u *User) { u.IsActive = false }, "Account is deactivated"},
		{"blocked", func(u *User) { u.IsBlocked = true }, "Account is blocked"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newServiceHarness(t)
			h.seedUser(t, "margaret", tc.mutate)

			_, err := h.service.Login(context.Background(), LoginInput{
				Username: "margaret",
				Password: testPassword,
				IP:       "10.0.0.1",
			})

			appErr := apperr.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, "FORBIDDEN", appErr.Code)
			assert.Equal(t, tc.message, appErr.Message)
		})
	}
}

func TestLogin_TwoFACodeRequired(t *testing.T) {
	h := newServiceHarness(t)
	secret, err := h.totpEngine.GenerateSecret()
	require.NoError(t, err)
	h.seedUser(t, "margaret", func(u *User) {
		u.TwoFAEnabled = true
		u.TwoFASecret = &secret
	})

	_, err = h.service.Login(context.Background(), LoginInput{
		Username: "margaret",
		Password: testPassword,
		IP:       "10.0.0.1",
	})

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestLogin_TwoFAWrongCode(t *testing.T) {
	h := newServiceHarness(t)
	secret, err := h.totpEngine.GenerateSecret()
	require.NoError(t, err)
	h.seedUser(t, "margaret", func(u *User) {
		u.TwoFAEnabled = true
		u.TwoFASecret = &secret
	})

	_, err = h.service.Login(context.Background(), LoginInput{
		Username: "margaret",
		Password: testPassword,
		TOTPCode: "000000",
		IP:       "10.0.0.1",
	})

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
	assert.Equal(t, 1, h.throttle.counts["margaret:10.0.0.1"])
	assert.Contains(t, h.auditStore.operations(), audit.OpTwoFAFailed)
}

func TestLogin_TwoFAValidCode(t *testing.T) {
	h := newServiceHarness(t)
	secret, err := h.totpEngine.GenerateSecret()
	require.NoError(t, err)
	h.seedUser(t, "margaret", func(u *User) {
		u.TwoFAEnabled = true
		u.TwoFASecret = &secret
	})

	code, err := h.totpEngine.CodeAt(secret, time.Now())
	require.NoError(t, err)

	session, err := h.service.Login(context.Background(), LoginInput{
		Username: "margaret",
		Password: testPassword,
		TOTPCode: code,
		IP:       "10.0.0.1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
}

func TestLogin_AuditOutageDoesNotBlockLogin(t *testing.T) {
	h := newServiceHarness(t)
	h.seedUser(t, "margaret", nil)
	h.auditStore.insertErr = errors.New("audit db down")

	session, err := h.service.Login(context.Background(), LoginInput{
		Username: "margaret",
		Password: testPassword,
		IP:       "10.0.0.1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
}

// # Refresh & Session

func TestRefresh_CarriesSessionForward(t *testing.T) {
	h := newServiceHarness(t)
	h.seedUser(t, "margaret", nil)

	session, err := h.service.Login(context.Background(), LoginInput{
		Username: "margaret",
		Password: testPassword,
		IP:       "10.0.0.1",
	})
	require.NoError(t, err)

	accessToken, err := h.service.Refresh(context.Background(), session.RefreshToken)
	require.NoError(t, err)
	assert.Contains(t, accessToken, *session.User.SessionToken)
}

func TestRefresh_StaleSessionFailsBindingAfterNewLogin(t *testing.T) {
	h := newServiceHarness(t)
	h.seedUser(t, "margaret", nil)

	first, err := h.service.Login(context.Background(), LoginInput{
		Username: "margaret", Password: testPassword, IP: "10.0.0.1",
	})
	require.NoError(t, err)

	second, err := h.service.Login(context.Background(), LoginInput{
		Username: "margaret", Password: testPassword, IP: "10.0.0.1",
	})
	require.NoError(t, err)

	// Refresh still mints a token, but it carries the stale session and so
	// fails the binding gate.
	accessToken, err := h.service.Refresh(context.Background(), first.RefreshToken)
	require.NoError(t, err)

	claims, err := stubTokenProvider{}.VerifyToken(accessToken, sec.TokenAccess)
	require.NoError(t, err)
	assert.NotEqual(t, *second.User.SessionToken, claims.Session)

	err = h.service.AuthorizeSession(context.Background(), second.User.ID, claims.Session)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	h := newServiceHarness(t)
	h.seedUser(t, "margaret", nil)

	session, err := h.service.Login(context.Background(), LoginInput{
		Username: "margaret", Password: testPassword, IP: "10.0.0.1",
	})
	require.NoError(t, err)

	_, err = h.service.Refresh(context.Background(), session.AccessToken)

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}

func TestRefresh_BlockedAccount(t *testing.T) {
	h := newServiceHarness(t)
	user := h.seedUser(t, "margaret", nil)

	session, err := h.service.Login(context.Background(), LoginInput{
		Username: "margaret", Password: testPassword, IP: "10.0.0.1",
	})
	require.NoError(t, err)

	h.userRepo.users[user.ID].IsBlocked = true

	_, err = h.service.Refresh(context.Background(), session.RefreshToken)

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
}

func TestAuthorizeSession_MissingStoredToken(t *testing.T) {
	h := newServiceHarness(t)
	user := h.seedUser(t, "margaret", nil)

	err := h.service.AuthorizeSession(context.Background(), user.ID, "anything")

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}

func TestLogout_RecordsAuditOnly(t *testing.T) {
	h := newServiceHarness(t)

	err := h.service.Logout(context.Background(), &audit.Actor{ID: 1, Username: "margaret", Role: "user"}, "10.0.0.1")
	require.NoError(t, err)
	assert.Contains(t, h.auditStore.operations(), audit.OpLogout)
}

// # Federated Login

func TestFederatedLogin_EnrollsNewAccount(t *testing.T) {
	h := newServiceHarness(t)

	session, err := h.service.FederatedLogin(context.Background(), &idp.Identity{
		Subject: "google-sub-1",
		Email:   "Fresh.Face@example.com",
		Name:    "Fresh Face",
	}, "10.0.0.1")
	require.NoError(t, err)

	user := session.User
	assert.Equal(t, "freshface", user.Username)
	assert.True(t, user.EmailVerified)
	assert.Equal(t, sec.RoleUser, user.Role)
	require.NotNil(t, user.SessionToken)

	// The random password hash must never match any guessable input.
	assert.False(t, sec.CheckPasswordHash("", user.PasswordHash))
}

func TestFederatedLogin_ExistingAccountByEmail(t *testing.T) {
	h := newServiceHarness(t)
	seeded := h.seedUser(t, "margaret", nil)

	session, err := h.service.FederatedLogin(context.Background(), &idp.Identity{
		Subject: "google-sub-2",
		Email:   seeded.Email,
	}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, session.User.ID)
}

func TestFederatedLogin_UsernameCollisionProbing(t *testing.T) {
	h := newServiceHarness(t)
	h.seedUser(t, "taken", nil)

	session, err := h.service.FederatedLogin(context.Background(), &idp.Identity{
		Subject: "google-sub-3",
		Email:   "taken@elsewhere.example.com",
	}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "taken1", session.User.Username)
}

func TestFederatedLogin_BlockedAccount(t *testing.T) {
	h := newServiceHarness(t)
	seeded := h.seedUser(t, "margaret", func(u *User) { u.IsBlocked = true })

	_, err := h.service.FederatedLogin(context.Background(), &idp.Identity{
		Subject: "google-sub-4",
		Email:   seeded.Email,
	}, "10.0.0.1")

	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
}
