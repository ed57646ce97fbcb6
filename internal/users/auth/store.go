// Copyright (c) 2026 Optica. All rights reserved.

package auth

import (
	"context"
	"time"

	"github.com/optica-app/optica/pkg/pagination"
)

// # User Data Access

// UserRepository defines the data access contract for accounts.
type UserRepository interface {

	/*
		Create persists a brand-new account.

		Parameters:
		  - context: context.Context
		  - user: *User (ID is populated on return)

		Returns:
		  - error: apperr.Conflict on unique violations, other persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByID(context context.Context, id int64) (*User, error)

	/*
		FindByUsername returns the account with the given username.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByUsername(context context.Context, username string) (*User, error)

	/*
		FindByEmail returns the account with the given email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		List returns a paginated window of all accounts plus the total count.

		Parameters:
		  - context: context.Context
		  - params: pagination.Params

		Returns:
		  - []User: Accounts ordered by ID
		  - int: Total account count
		  - error: Query failures
	*/
	List(context context.Context, params pagination.Params) ([]User, int, error)

	/*
		Update persists changes to mutable account fields
		(email, role, active/blocked flags).

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: apperr.Conflict on unique violations, other persistence failures
	*/
	Update(context context.Context, user *User) error

	/*
		UpdatePassword replaces only the account's password hash.

		Parameters:
		  - context: context.Context
		  - userID: int64
		  - newHash: string

		Returns:
		  - error: Persistence failures
	*/
	UpdatePassword(context context.Context, userID int64, newHash string) error

	/*
		RecordLogin rotates the session token and stamps last_login atomically.

		Parameters:
		  - context: context.Context
		  - userID: int64
		  - sessionToken: string
		  - at: time.Time

		Returns:
		  - error: Persistence failures
	*/
	RecordLogin(context context.Context, userID int64, sessionToken string, at time.Time) error

	/*
		UpdateSessionToken rotates the session token without touching last_login.
		Used by the admin password reset to force re-login.

		Parameters:
		  - context: context.Context
		  - userID: int64
		  - sessionToken: string

		Returns:
		  - error: Persistence failures
	*/
	UpdateSessionToken(context context.Context, userID int64, sessionToken string) error

	/*
		SetVerification stores a fresh email verification code and its expiry.

		Parameters:
		  - context: context.Context
		  - userID: int64
		  - code: string
		  - expiry: time.Time

		Returns:
		  - error: Persistence failures
	*/
	SetVerification(context context.Context, userID int64, code string, expiry time.Time) error

	/*
		MarkVerified flags the email as verified and clears the pending code.

		Parameters:
		  - context: context.Context
		  - userID: int64

		Returns:
		  - error: Persistence failures
	*/
	MarkVerified(context context.Context, userID int64) error

	/*
		UpdateTwoFA sets the 2FA enabled flag and secret together.
		A nil secret clears the stored value.

		Parameters:
		  - context: context.Context
		  - userID: int64
		  - enabled: bool
		  - secret: *string

		Returns:
		  - error: Persistence failures
	*/
	UpdateTwoFA(context context.Context, userID int64, enabled bool, secret *string) error

	/*
		Delete permanently removes the account row.

		Parameters:
		  - context: context.Context
		  - userID: int64

		Returns:
		  - error: apperr.NotFound or persistence failures
	*/
	Delete(context context.Context, userID int64) error
}

// # Login Throttling

// LoginThrottle tracks failed login attempts per username+IP pair over a
// sliding window. Backed by Redis counters with TTL.
type LoginThrottle interface {

	/*
		Failures returns the current failed-attempt count for the pair.

		Parameters:
		  - context: context.Context
		  - username: string
		  - ip: string

		Returns:
		  - int: Attempt count within the active window
		  - error: Connectivity failures
	*/
	Failures(context context.Context, username, ip string) (int, error)

	/*
		RegisterFailure increments the counter, starting the window on first failure.

		Parameters:
		  - context: context.Context
		  - username: string
		  - ip: string
		  - window: time.Duration

		Returns:
		  - error: Connectivity failures
	*/
	RegisterFailure(context context.Context, username, ip string, window time.Duration) error

	/*
		Reset clears the counter after a successful login.

		Parameters:
		  - context: context.Context
		  - username: string
		  - ip: string

		Returns:
		  - error: Connectivity failures
	*/
	Reset(context context.Context, username, ip string) error
}
