// Copyright (c) 2026 Optica. All rights reserved.

package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// # Best-Effort Recording

// Recorder orchestrates audit writes on behalf of the other services.
//
// # Failure Policy
//
// Record returns the storage error so callers can see it, but every call site
// discards it explicitly (`_ = recorder.Record(...)`). A broken audit store
// must never take down logins or admin operations; the failure is still
// visible in the structured log.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

// NewRecorder constructs a [Recorder] with its storage dependency.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

/*
Record appends a single event to the audit trail.

Description: Normalizes the entry (UTC timestamp, taxonomy enforcement,
actor snapshot) and inserts it. Unknown operations are recorded as
[OpUnknownAction] rather than rejected, so a taxonomy bug cannot silence
the trail.

Parameters:
  - context: context.Context
  - entry: Entry

Returns:
  - error: Storage failures (logged here; callers discard)
*/
func (recorder *Recorder) Record(context context.Context, entry Entry) error {

	// Enforce the closed taxonomy instead of trusting call sites.
	operation := entry.Operation
	if !operation.Valid() {
		operation = OpUnknownAction
	}

	status := entry.Status
	if !status.Valid() {
		status = StatusWarning
	}

	event := &Event{
		Timestamp: time.Now().UTC(),
		Operation: operation,
		Status:    status,
	}

	// Snapshot the actor. A resolved account wins over a bare username.
	if entry.Actor != nil {
		actorID := entry.Actor.ID
		actorUsername := entry.Actor.Username
		actorRole := entry.Actor.Role
		event.ActorID = &actorID
		event.ActorUsername = &actorUsername
		event.ActorRole = &actorRole
	} else if entry.Username != "" {
		username := entry.Username
		event.ActorUsername = &username
	}

	if entry.TargetTable != "" {
		table := entry.TargetTable
		event.TargetTable = &table
	}
	if entry.TargetID != 0 {
		targetID := entry.TargetID
		event.TargetID = &targetID
	}
	if entry.IP != "" {
		ip := entry.IP
		event.IPAddress = &ip
	}
	if entry.Details != "" {
		details := entry.Details
		event.Details = &details
	}

	if err := recorder.store.Insert(context, event); err != nil {
		recorder.logger.ErrorContext(context, "audit_record_failed",
			slog.String("operation", string(operation)),
			slog.String("status", string(status)),
			slog.Any("error", err),
		)
		return fmt.Errorf("audit_record_failed: %w", err)
	}

	return nil
}
