// Copyright (c) 2026 Optica. All rights reserved.

/*
Package audit implements the append-only security audit trail.

Every security-relevant action in the system (logins, 2FA changes, admin
mutations, log browsing itself) is recorded as an immutable Event row. Events
are only ever inserted; there is no update or delete path anywhere in the
codebase.

# Architecture

  - Event: The immutable domain entity persisted per action.
  - Recorder: Best-effort write orchestration used by other services.
  - Store: Abstracted persistence interface implemented on PostgreSQL.

Audit writes are deliberately best-effort: a failure to record an event must
never abort the primary operation that triggered it.
*/
package audit

import "time"

// # Operation Taxonomy

// Operation is the closed set of auditable action identifiers.
//
// The set is closed on purpose: free-form operation strings would make the
// trail impossible to filter or aggregate. Anything outside the set is
// recorded as [OpUnknownAction].
type Operation string

const (
	OpLoginSuccess       Operation = "login_success"
	OpLoginFailed        Operation = "login_failed"
	OpLogout             Operation = "logout"
	OpTwoFAEnabled       Operation = "2fa_enabled"
	OpTwoFADisabled      Operation = "2fa_disabled"
	OpTwoFAFailed        Operation = "2fa_failed"
	OpUserCreated        Operation = "user_created"
	OpUserUpdated        Operation = "user_updated"
	OpUserDeleted        Operation = "user_deleted"
	OpUserBlocked        Operation = "user_blocked"
	OpUserUnblocked      Operation = "user_unblocked"
	OpRoleChanged        Operation = "role_changed"
	OpPasswordResetAdmin Operation = "password_reset_admin"
	OpForbiddenAccess    Operation = "forbidden_access"
	OpProductView        Operation = "product_view"
	OpLogsViewed         Operation = "logs_viewed"
	OpRegistration       Operation = "registration"
	OpEmailVerified      Operation = "email_verified"
	OpUnknownAction      Operation = "unknown_action"
)

// operations is the membership set for [Operation.Valid].
var operations = map[Operation]struct{}{
	OpLoginSuccess: {}, OpLoginFailed: {}, OpLogout: {},
	OpTwoFAEnabled: {}, OpTwoFADisabled: {}, OpTwoFAFailed: {},
	OpUserCreated: {}, OpUserUpdated: {}, OpUserDeleted: {},
	OpUserBlocked: {}, OpUserUnblocked: {}, OpRoleChanged: {},
	OpPasswordResetAdmin: {}, OpForbiddenAccess: {},
	OpProductView: {}, OpLogsViewed: {},
	OpRegistration: {}, OpEmailVerified: {}, OpUnknownAction: {},
}

// Valid reports whether the operation belongs to the closed taxonomy.
func (o Operation) Valid() bool {
	_, ok := operations[o]
	return ok
}

// Status is the outcome classification of an audited action.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusWarning Status = "warning"
)

// Valid reports whether the status is one of the three known outcomes.
func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusWarning:
		return true
	}
	return false
}

// # Domain Entities

// Event is a single immutable row in the audit trail.
//
// Actor fields are snapshots taken at record time: if the account is later
// renamed or deleted, the trail still shows who acted. All actor and target
// fields are nullable because some events (e.g. a failed login for an unknown
// username) have no resolvable account behind them.
type Event struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	ActorID       *int64  `json:"user_id,omitempty"`
	ActorUsername *string `json:"username,omitempty"`
	ActorRole     *string `json:"role,omitempty"`

	Operation   Operation `json:"operation"`
	TargetTable *string   `json:"target_table,omitempty"`
	TargetID    *int64    `json:"target_id,omitempty"`
	Status      Status    `json:"status"`
	IPAddress   *string   `json:"ip_address,omitempty"`
	Details     *string   `json:"details,omitempty"`
}

// Actor identifies the authenticated account performing an action.
type Actor struct {
	ID       int64
	Username string
	Role     string
}

// Entry is the write-side payload handed to [Recorder.Record].
//
// Zero values mean "absent": a nil Actor with a non-empty Username records a
// bare username snapshot (used for failed logins against unknown or
// unauthenticated accounts).
type Entry struct {
	Actor       *Actor
	Username    string
	Operation   Operation
	TargetTable string
	TargetID    int64
	Status      Status
	IP          string
	Details     string
}

// # Query Types

// Filter narrows an audit-log listing. Zero values disable each criterion.
type Filter struct {
	From      *time.Time
	To        *time.Time
	Role      string
	Operation string
	Status    string
	// Username is matched as a case-insensitive substring.
	Username string
	IP       string

	// SortBy is one of: timestamp, username, role, operation, status.
	// Unknown columns fall back to timestamp.
	SortBy string
	// SortAsc orders ascending; the default is newest first.
	SortAsc bool
}

// OperationCount is one row of the per-operation aggregate.
type OperationCount struct {
	Operation string `json:"operation"`
	Count     int    `json:"count"`
}

// UserCount is one row of the per-user aggregate.
type UserCount struct {
	Username string `json:"username"`
	Count    int    `json:"count"`
}

// Summary aggregates trail activity over a time range.
type Summary struct {
	Total         int              `json:"total"`
	TotalSuccess  int              `json:"total_success"`
	TotalFailed   int              `json:"total_failed"`
	TotalWarning  int              `json:"total_warning"`
	TopOperations []OperationCount `json:"top_operations"`
	TopUsers      []UserCount      `json:"top_users"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the audit domain.
const (
	FieldOperation = "operation"
	FieldStatus    = "status"
	FieldSortBy    = "sort_by"
)
