// Copyright (c) 2026 Optica. All rights reserved.

/*
Package admin implements staff-facing user management.

It layers administrative operations (listing, provisioning, blocking, role
changes, password resets) over the auth package's user repository. Every
mutation lands in the audit trail with the acting administrator as the
actor.
*/
package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/optica-app/optica/internal/audit"
	"github.com/optica-app/optica/internal/platform/apperr"
	"github.com/optica-app/optica/internal/platform/sec"
	"github.com/optica-app/optica/internal/users/auth"
	"github.com/optica-app/optica/pkg/pagination"
)

// Service implements the administrative user management use cases.
type Service struct {
	userRepository auth.UserRepository
	recorder       *audit.Recorder
	logger         *slog.Logger
}

// NewService constructs the admin [Service].
func NewService(userRepo auth.UserRepository, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{
		userRepository: userRepo,
		recorder:       recorder,
		logger:         logger,
	}
}

// # Queries

// List returns a page of accounts with the total count.
func (service *Service) List(context context.Context, params pagination.Params) ([]auth.User, int, error) {
	return service.userRepository.List(context, params)
}

// Get returns a single account by ID.
func (service *Service) Get(context context.Context, userID int64) (*auth.User, error) {
	return service.userRepository.FindByID(context, userID)
}

// # Provisioning

// CreateInput holds the data for an admin-provisioned account.
type CreateInput struct {
	Username string
	Email    string
	Password string
	Role     sec.Role
}

/*
Create provisions an account on behalf of an administrator.

Description: Unlike self-registration, admin-created accounts skip email
verification entirely: the administrator vouches for the address. The
password strength policy still applies.

Parameters:
  - context: context.Context
  - actor: *audit.Actor (the acting administrator)
  - input: CreateInput
  - ip: string

Returns:
  - *auth.User: Created entity
  - error: Validation, Conflict, or storage errors
*/
func (service *Service) Create(context context.Context, actor *audit.Actor, input CreateInput, ip string) (*auth.User, error) {
	if ok, message := sec.CheckPasswordStrength(input.Password); !ok {
		return nil, apperr.ValidationError(message)
	}

	if !input.Role.Valid() {
		return nil, apperr.ValidationError("Invalid role")
	}

	if _, err := service.userRepository.FindByUsername(context, input.Username); err == nil {
		return nil, apperr.Conflict("Username is already taken")
	}
	if _, err := service.userRepository.FindByEmail(context, input.Email); err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("admin_service_hash_failed: %w", err)
	}

	user := &auth.User{
		Username:      input.Username,
		Email:         input.Email,
		PasswordHash:  hashedPassword,
		Role:          input.Role,
		IsActive:      true,
		EmailVerified: true,
	}

	if err := service.userRepository.Create(context, user); err != nil {
		return nil, err
	}

	_ = service.recorder.Record(context, audit.Entry{
		Actor:       actor,
		Operation:   audit.OpUserCreated,
		TargetTable: auth.TargetTableUsers,
		TargetID:    user.ID,
		Status:      audit.StatusSuccess,
		IP:          ip,
		Details:     "created " + user.Username + " with role " + string(user.Role),
	})

	return user, nil
}

// # Mutation

// UpdateInput holds the mutable account fields. Nil pointers leave the
// corresponding field untouched.
type UpdateInput struct {
	Email     *string
	Role      *sec.Role
	IsActive  *bool
	IsBlocked *bool
}

/*
Update applies a partial mutation to an account.

Description: The audit operation is chosen by what actually changed: a block
transition records USER_BLOCKED/USER_UNBLOCKED, a role transition records
ROLE_CHANGED, anything else records USER_UPDATED. A single call touching
several of these records one event per transition.

Parameters:
  - context: context.Context
  - actor: *audit.Actor
  - userID: int64
  - input: UpdateInput
  - ip: string

Returns:
  - *auth.User: Updated entity
  - error: NotFound, Validation, Conflict, or storage errors
*/
func (service *Service) Update(context context.Context, actor *audit.Actor, userID int64, input UpdateInput, ip string) (*auth.User, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	previousRole := user.Role
	previouslyBlocked := user.IsBlocked
	plainUpdate := false

	if input.Email != nil && *input.Email != user.Email {
		if _, err := service.userRepository.FindByEmail(context, *input.Email); err == nil {
			return nil, apperr.Conflict("Email is already registered")
		}
		user.Email = *input.Email
		plainUpdate = true
	}

	if input.Role != nil && *input.Role != user.Role {
		if !input.Role.Valid() {
			return nil, apperr.ValidationError("Invalid role")
		}
		user.Role = *input.Role
	}

	if input.IsActive != nil && *input.IsActive != user.IsActive {
		user.IsActive = *input.IsActive
		plainUpdate = true
	}

	if input.IsBlocked != nil {
		user.IsBlocked = *input.IsBlocked
	}

	if err := service.userRepository.Update(context, user); err != nil {
		return nil, err
	}

	// One audit event per meaningful transition.
	if user.IsBlocked != previouslyBlocked {
		operation := audit.OpUserBlocked
		if !user.IsBlocked {
			operation = audit.OpUserUnblocked
		}
		_ = service.recorder.Record(context, audit.Entry{
			Actor:       actor,
			Operation:   operation,
			TargetTable: auth.TargetTableUsers,
			TargetID:    user.ID,
			Status:      audit.StatusSuccess,
			IP:          ip,
		})
	}

	if user.Role != previousRole {
		_ = service.recorder.Record(context, audit.Entry{
			Actor:       actor,
			Operation:   audit.OpRoleChanged,
			TargetTable: auth.TargetTableUsers,
			TargetID:    user.ID,
			Status:      audit.StatusSuccess,
			IP:          ip,
			Details:     string(previousRole) + " -> " + string(user.Role),
		})
	}

	if plainUpdate {
		_ = service.recorder.Record(context, audit.Entry{
			Actor:       actor,
			Operation:   audit.OpUserUpdated,
			TargetTable: auth.TargetTableUsers,
			TargetID:    user.ID,
			Status:      audit.StatusSuccess,
			IP:          ip,
		})
	}

	return user, nil
}

/*
Delete removes an account permanently.

Description: Administrators cannot delete their own account; demotion or
deletion must come from another administrator. The audit event survives the
deletion because the trail stores a snapshot of the target's identity, not a
foreign key dependency.

Parameters:
  - context: context.Context
  - actor: *audit.Actor
  - userID: int64
  - ip: string

Returns:
  - error: Forbidden (self-delete), NotFound, or storage errors
*/
func (service *Service) Delete(context context.Context, actor *audit.Actor, userID int64, ip string) error {
	if actor != nil && actor.ID == userID {
		return apperr.Forbidden("You cannot delete your own account")
	}

	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return err
	}

	if err := service.userRepository.Delete(context, userID); err != nil {
		return err
	}

	_ = service.recorder.Record(context, audit.Entry{
		Actor:       actor,
		Operation:   audit.OpUserDeleted,
		TargetTable: auth.TargetTableUsers,
		TargetID:    userID,
		Status:      audit.StatusSuccess,
		IP:          ip,
		Details:     "deleted " + user.Username,
	})

	return nil
}

/*
ResetPassword sets a new password for an account and revokes its sessions.

Description: The session token rotates alongside the password, so every
outstanding token for the account dies immediately. The strength policy
applies to the new password.

Parameters:
  - context: context.Context
  - actor: *audit.Actor
  - userID: int64
  - newPassword: string
  - ip: string

Returns:
  - error: Validation, NotFound, or storage errors
*/
func (service *Service) ResetPassword(context context.Context, actor *audit.Actor, userID int64, newPassword, ip string) error {
	if ok, message := sec.CheckPasswordStrength(newPassword); !ok {
		return apperr.ValidationError(message)
	}

	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return err
	}

	hashedPassword, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("admin_service_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(context, user.ID, hashedPassword); err != nil {
		return err
	}

	// Revoke every live session for the account.
	sessionToken, err := sec.GenerateSessionToken()
	if err != nil {
		return fmt.Errorf("admin_service_session_token_failed: %w", err)
	}
	if err := service.userRepository.UpdateSessionToken(context, user.ID, sessionToken); err != nil {
		return fmt.Errorf("admin_service_session_rotation_failed: %w", err)
	}

	_ = service.recorder.Record(context, audit.Entry{
		Actor:       actor,
		Operation:   audit.OpPasswordResetAdmin,
		TargetTable: auth.TargetTableUsers,
		TargetID:    user.ID,
		Status:      audit.StatusSuccess,
		IP:          ip,
		Details:     "password reset for " + user.Username,
	})

	return nil
}
