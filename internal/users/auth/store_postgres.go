// Copyright (c) 2026 Optica. All rights reserved.

// PostgreSQL implementation of the auth storage contracts.
//
// # Error Mapping
//
// Storage-specific errors (pgx.ErrNoRows, unique_violation) are mapped to
// domain-friendly [apperr.AppError] types to avoid leaking storage
// implementation details.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optica-app/optica/internal/platform/apperr"
	"github.com/optica-app/optica/pkg/pagination"
)

// # User Repository

// PostgresUserRepository implements the [UserRepository] interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `
	id, username, email, password_hash, role,
	two_fa_enabled, two_fa_secret, session_token,
	is_active, is_blocked, email_verified,
	verification_code, verification_expiry,
	created_at, updated_at, last_login`

// scanUser hydrates a full User entity from a pgx row.
func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.TwoFAEnabled,
		&user.TwoFASecret,
		&user.SessionToken,
		&user.IsActive,
		&user.IsBlocked,
		&user.EmailVerified,
		&user.VerificationCode,
		&user.VerificationExpiry,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLogin,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// mapUniqueViolation converts a unique_violation into a client-safe Conflict.
func mapUniqueViolation(err error) error {
	var pgError *pgconn.PgError
	if errors.As(err, &pgError) && pgError.Code == pgerrcode.UniqueViolation {
		return apperr.Conflict("Username or email is already in use")
	}
	return nil
}

/*
Create persists a new account row into the users table.

Description: Deep-persists account state, initializing timestamps and writing
the generated bigserial ID back into the entity. Unique violations on
username or email surface as [apperr.Conflict].

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: apperr.Conflict, other constraint or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO users (
			username, email, password_hash, role,
			two_fa_enabled, two_fa_secret, session_token,
			is_active, is_blocked, email_verified,
			verification_code, verification_expiry,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	err := repository.pool.QueryRow(context, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.TwoFAEnabled,
		user.TwoFASecret,
		user.SessionToken,
		user.IsActive,
		user.IsBlocked,
		user.EmailVerified,
		user.VerificationCode,
		user.VerificationExpiry,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)

	if err != nil {
		if conflict := mapUniqueViolation(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByID retrieves an account by its primary key.

Parameters:
  - context: context.Context
  - id: int64

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id int64) (*User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)

	user, err := scanUser(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_id_failed: %w", err)
	}

	return user, nil
}

/*
FindByUsername retrieves an account by its unique username.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByUsername(context context.Context, username string) (*User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE username = $1", userColumns)

	user, err := scanUser(repository.pool.QueryRow(context, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_username_failed: %w", err)
	}

	return user, nil
}

/*
FindByEmail retrieves an account by its unique email address.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1", userColumns)

	user, err := scanUser(repository.pool.QueryRow(context, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_find_by_email_failed: %w", err)
	}

	return user, nil
}

/*
List returns a paginated window of accounts ordered by ID.

Parameters:
  - context: context.Context
  - params: pagination.Params

Returns:
  - []User: Account page
  - int: Total account count
  - error: Query failures
*/
func (repository *PostgresUserRepository) List(context context.Context, params pagination.Params) ([]User, int, error) {
	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total_count
		FROM users ORDER BY id LIMIT $1 OFFSET $2`, userColumns)

	rows, err := repository.pool.Query(context, query, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_user_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var users []User
	var totalCount int

	for rows.Next() {
		user := User{}
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.PasswordHash,
			&user.Role,
			&user.TwoFAEnabled,
			&user.TwoFASecret,
			&user.SessionToken,
			&user.IsActive,
			&user.IsBlocked,
			&user.EmailVerified,
			&user.VerificationCode,
			&user.VerificationExpiry,
			&user.CreatedAt,
			&user.UpdatedAt,
			&user.LastLogin,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_user_repo_list_scan_failed: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_user_repo_list_rows_failed: %w", err)
	}

	return users, totalCount, nil
}

/*
Update persists changes to the account's mutable administrative fields.

Description: Synchronizes email, role, and the active/blocked flags,
refreshing the updated_at timestamp.

Parameters:
  - context: context.Context
  - user: *User

Returns:
  - error: apperr.Conflict on email collision, other update failures
*/
func (repository *PostgresUserRepository) Update(context context.Context, user *User) error {
	const query = `
		UPDATE users
		SET email = $2, role = $3, is_active = $4, is_blocked = $5, updated_at = $6
		WHERE id = $1`

	user.UpdatedAt = time.Now().UTC()
	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Email,
		user.Role,
		user.IsActive,
		user.IsBlocked,
		user.UpdatedAt,
	)

	if err != nil {
		if conflict := mapUniqueViolation(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("postgres_user_repo_update_failed: %w", err)
	}

	return nil
}

/*
UpdatePassword updates only the password hash for a specific account.

Parameters:
  - context: context.Context
  - userID: int64
  - newHash: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID int64, newHash string) error {
	const query = "UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1"

	_, err := repository.pool.Exec(context, query, userID, newHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}

	return nil
}

/*
RecordLogin rotates the session token and stamps last_login in one statement.

Description: The single-statement update keeps rotation atomic: no window
exists where last_login moved but the old session token still validates.

Parameters:
  - context: context.Context
  - userID: int64
  - sessionToken: string
  - at: time.Time

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) RecordLogin(context context.Context, userID int64, sessionToken string, at time.Time) error {
	const query = `
		UPDATE users
		SET session_token = $2, last_login = $3, updated_at = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, sessionToken, at.UTC())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_record_login_failed: %w", err)
	}

	return nil
}

/*
UpdateSessionToken rotates the session token without touching last_login.

Parameters:
  - context: context.Context
  - userID: int64
  - sessionToken: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) UpdateSessionToken(context context.Context, userID int64, sessionToken string) error {
	const query = "UPDATE users SET session_token = $2, updated_at = $3 WHERE id = $1"

	_, err := repository.pool.Exec(context, query, userID, sessionToken, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_session_failed: %w", err)
	}

	return nil
}

/*
SetVerification stores a fresh verification code with its expiry.

Parameters:
  - context: context.Context
  - userID: int64
  - code: string
  - expiry: time.Time

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) SetVerification(context context.Context, userID int64, code string, expiry time.Time) error {
	const query = `
		UPDATE users
		SET verification_code = $2, verification_expiry = $3, updated_at = $4
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, code, expiry.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_set_verification_failed: %w", err)
	}

	return nil
}

/*
MarkVerified activates the email and clears the pending code atomically.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) MarkVerified(context context.Context, userID int64) error {
	const query = `
		UPDATE users
		SET email_verified = TRUE, verification_code = NULL, verification_expiry = NULL, updated_at = $2
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_mark_verified_failed: %w", err)
	}

	return nil
}

/*
UpdateTwoFA sets the 2FA flag and secret together.

Description: A nil secret clears the column. Flag and secret always move in
one statement so the "secret non-null iff enabled or pending" invariant holds.

Parameters:
  - context: context.Context
  - userID: int64
  - enabled: bool
  - secret: *string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) UpdateTwoFA(context context.Context, userID int64, enabled bool, secret *string) error {
	const query = `
		UPDATE users
		SET two_fa_enabled = $2, two_fa_secret = $3, updated_at = $4
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, enabled, secret, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_two_fa_failed: %w", err)
	}

	return nil
}

/*
Delete permanently removes an account row.

Parameters:
  - context: context.Context
  - userID: int64

Returns:
  - error: apperr.NotFound if no row matched, execution errors
*/
func (repository *PostgresUserRepository) Delete(context context.Context, userID int64) error {
	const query = "DELETE FROM users WHERE id = $1"

	tag, err := repository.pool.Exec(context, query, userID)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_delete_failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}
