// Copyright (c) 2026 Optica. All rights reserved.

package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/optica-app/optica/internal/platform/apperr"
	"github.com/optica-app/optica/pkg/pagination"
)

// # PostgreSQL Store

// PostgresStore implements the [Store] interface using pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL implementation of the audit [Store].
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const eventColumns = `id, timestamp, user_id, username, role, operation, target_table, target_id, status, ip_address, details`

/*
Insert appends a new event row to the audit_log table.

Description: Append-only write. The generated bigserial ID and the persisted
timestamp are written back into the entity.

Parameters:
  - context: context.Context
  - event: *Event

Returns:
  - error: Constraint violations or connectivity errors
*/
func (store *PostgresStore) Insert(context context.Context, event *Event) error {
	const query = `
		INSERT INTO audit_log (
			timestamp, user_id, username, role, operation, target_table, target_id, status, ip_address, details
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	err := store.pool.QueryRow(context, query,
		event.Timestamp,
		event.ActorID,
		event.ActorUsername,
		event.ActorRole,
		event.Operation,
		event.TargetTable,
		event.TargetID,
		event.Status,
		event.IPAddress,
		event.Details,
	).Scan(&event.ID)

	if err != nil {
		return fmt.Errorf("postgres_audit_insert_failed: %w", err)
	}

	return nil
}

/*
FindByID retrieves a single event by its primary key.

Parameters:
  - context: context.Context
  - id: int64

Returns:
  - *Event: Hydrated entity
  - error: apperr.NotFound or execution errors
*/
func (store *PostgresStore) FindByID(context context.Context, id int64) (*Event, error) {
	query := fmt.Sprintf("SELECT %s FROM audit_log WHERE id = $1", eventColumns)

	event := &Event{}
	err := store.pool.QueryRow(context, query, id).Scan(
		&event.ID,
		&event.Timestamp,
		&event.ActorID,
		&event.ActorUsername,
		&event.ActorRole,
		&event.Operation,
		&event.TargetTable,
		&event.TargetID,
		&event.Status,
		&event.IPAddress,
		&event.Details,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Audit event")
		}
		return nil, fmt.Errorf("postgres_audit_find_by_id_failed: %w", err)
	}

	return event, nil
}

// sortColumns whitelists the ORDER BY targets. Anything else falls back to
// timestamp to keep the identifier out of attacker control.
var sortColumns = map[string]string{
	"timestamp": "timestamp",
	"username":  "username",
	"role":      "role",
	"operation": "operation",
	"status":    "status",
}

/*
List returns a filtered window of the audit trail plus the total match count.

Description: Builds a dynamic WHERE clause from the filter, applies
whitelisted sorting and pagination, and counts the full match set in the same
query via a window function.

Parameters:
  - context: context.Context
  - filter: Filter
  - params: pagination.Params

Returns:
  - []Event: Matching events
  - int: Total matches before pagination
  - error: Query failures
*/
func (store *PostgresStore) List(context context.Context, filter Filter, params pagination.Params) ([]Event, int, error) {
	var queryBuilder strings.Builder
	var args []interface{}
	argID := 1

	queryBuilder.WriteString(fmt.Sprintf(
		"SELECT %s, COUNT(*) OVER() AS total_count FROM audit_log WHERE TRUE", eventColumns,
	))

	// Apply Filters (Dynamic WHERE clause construction)
	if filter.From != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND timestamp >= $%d", argID))
		args = append(args, *filter.From)
		argID++
	}

	if filter.To != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND timestamp <= $%d", argID))
		args = append(args, *filter.To)
		argID++
	}

	if filter.Role != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND role = $%d", argID))
		args = append(args, filter.Role)
		argID++
	}

	if filter.Operation != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND operation = $%d", argID))
		args = append(args, filter.Operation)
		argID++
	}

	if filter.Status != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND status = $%d", argID))
		args = append(args, filter.Status)
		argID++
	}

	// Username is a case-insensitive substring match for operator convenience.
	if filter.Username != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND username ILIKE $%d", argID))
		args = append(args, "%"+filter.Username+"%")
		argID++
	}

	if filter.IP != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND ip_address = $%d", argID))
		args = append(args, filter.IP)
		argID++
	}

	// Apply Sorting (whitelisted columns only)
	sortColumn, ok := sortColumns[filter.SortBy]
	if !ok {
		sortColumn = "timestamp"
	}

	sortDir := "DESC"
	if filter.SortAsc {
		sortDir = "ASC"
	}

	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY %s %s, id DESC", sortColumn, sortDir))

	// Pagination injection
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, params.Limit, params.Offset())

	// Query Execution
	rows, err := store.pool.Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_audit_list_failed: %w", err)
	}
	defer rows.Close()

	var events []Event
	var totalCount int

	for rows.Next() {
		event := Event{}
		err := rows.Scan(
			&event.ID,
			&event.Timestamp,
			&event.ActorID,
			&event.ActorUsername,
			&event.ActorRole,
			&event.Operation,
			&event.TargetTable,
			&event.TargetID,
			&event.Status,
			&event.IPAddress,
			&event.Details,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres_audit_scan_failed: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_audit_rows_failed: %w", err)
	}

	return events, totalCount, nil
}

/*
Summarize aggregates the trail over an optional time range.

Description: Computes per-status totals plus the five most frequent operations
and actors within the range.

Parameters:
  - context: context.Context
  - from: *time.Time
  - to: *time.Time

Returns:
  - *Summary: Aggregated totals
  - error: Query failures
*/
func (store *PostgresStore) Summarize(context context.Context, from, to *time.Time) (*Summary, error) {
	rangeClause, rangeArgs := buildRangeClause(from, to)

	summary := &Summary{}

	// Per-status totals in a single scan.
	totalsQuery := fmt.Sprintf(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'success'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE status = 'warning')
		FROM audit_log WHERE TRUE%s`, rangeClause)

	err := store.pool.QueryRow(context, totalsQuery, rangeArgs...).Scan(
		&summary.Total,
		&summary.TotalSuccess,
		&summary.TotalFailed,
		&summary.TotalWarning,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres_audit_summary_totals_failed: %w", err)
	}

	// Top operations by frequency.
	operationsQuery := fmt.Sprintf(`
		SELECT operation, COUNT(*) AS count
		FROM audit_log WHERE TRUE%s
		GROUP BY operation ORDER BY count DESC LIMIT 5`, rangeClause)

	rows, err := store.pool.Query(context, operationsQuery, rangeArgs...)
	if err != nil {
		return nil, fmt.Errorf("postgres_audit_summary_operations_failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row OperationCount
		if err := rows.Scan(&row.Operation, &row.Count); err != nil {
			return nil, fmt.Errorf("postgres_audit_summary_operations_scan_failed: %w", err)
		}
		summary.TopOperations = append(summary.TopOperations, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_audit_summary_operations_rows_failed: %w", err)
	}

	// Top actors by frequency. Anonymous rows (NULL username) are skipped.
	usersQuery := fmt.Sprintf(`
		SELECT username, COUNT(*) AS count
		FROM audit_log WHERE username IS NOT NULL%s
		GROUP BY username ORDER BY count DESC LIMIT 5`, rangeClause)

	userRows, err := store.pool.Query(context, usersQuery, rangeArgs...)
	if err != nil {
		return nil, fmt.Errorf("postgres_audit_summary_users_failed: %w", err)
	}
	defer userRows.Close()

	for userRows.Next() {
		var row UserCount
		if err := userRows.Scan(&row.Username, &row.Count); err != nil {
			return nil, fmt.Errorf("postgres_audit_summary_users_scan_failed: %w", err)
		}
		summary.TopUsers = append(summary.TopUsers, row)
	}
	if err := userRows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_audit_summary_users_rows_failed: %w", err)
	}

	return summary, nil
}

// buildRangeClause renders the shared timestamp-range predicate.
func buildRangeClause(from, to *time.Time) (string, []interface{}) {
	var clause strings.Builder
	var args []interface{}
	argID := 1

	if from != nil {
		clause.WriteString(fmt.Sprintf(" AND timestamp >= $%d", argID))
		args = append(args, *from)
		argID++
	}
	if to != nil {
		clause.WriteString(fmt.Sprintf(" AND timestamp <= $%d", argID))
		args = append(args, *to)
	}

	return clause.String(), args
}
