// Copyright (c) 2026 Optica. All rights reserved.

package audit

import (
	"context"
	"time"

	"github.com/optica-app/optica/pkg/pagination"
)

// # Audit Data Access

// Store defines the data access contract for the audit trail.
//
// Note the deliberately narrow surface: there is no Update or Delete. The
// trail is append-only at the interface level, not just by convention.
type Store interface {

	/*
		Insert appends a new event to the trail.

		Parameters:
		  - context: context.Context
		  - event: *Event (ID and Timestamp are populated on return)

		Returns:
		  - error: Persistence failures
	*/
	Insert(context context.Context, event *Event) error

	/*
		FindByID returns the event with the given ID.

		Parameters:
		  - context: context.Context
		  - id: int64

		Returns:
		  - *Event: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByID(context context.Context, id int64) (*Event, error)

	/*
		List returns a filtered, sorted, paginated window of the trail.

		Parameters:
		  - context: context.Context
		  - filter: Filter
		  - params: pagination.Params

		Returns:
		  - []Event: Matching events
		  - int: Total match count before pagination
		  - error: Query failures
	*/
	List(context context.Context, filter Filter, params pagination.Params) ([]Event, int, error)

	/*
		Summarize aggregates trail activity over an optional time range.

		Parameters:
		  - context: context.Context
		  - from: *time.Time (nil = unbounded)
		  - to: *time.Time (nil = unbounded)

		Returns:
		  - *Summary: Aggregated totals
		  - error: Query failures
	*/
	Summarize(context context.Context, from, to *time.Time) (*Summary, error)
}
