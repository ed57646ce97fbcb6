// Copyright (c) 2026 Optica. All rights reserved.

/*
Audit HTTP delivery layer.

Exposes the audit trail to staff and admin operators. Browsing the trail is
itself an auditable action: every listing request appends a LOGS_VIEWED event.
*/
package audit

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/optica-app/optica/internal/platform/middleware"
	requestutil "github.com/optica-app/optica/internal/platform/request"
	"github.com/optica-app/optica/internal/platform/respond"
	"github.com/optica-app/optica/internal/platform/validate"
	"github.com/optica-app/optica/pkg/pagination"
)

// # Definitions & Constructors

// Handler implements the audit-log browsing HTTP endpoints.
type Handler struct {
	store    Store
	recorder *Recorder
}

// NewHandler constructs a new [Handler] with its dependencies.
func NewHandler(store Store, recorder *Recorder) *Handler {
	return &Handler{store: store, recorder: recorder}
}

// Routes returns a [chi.Router] with the audit browsing endpoints.
//
// The caller is responsible for mounting this behind a staff-or-above role
// gate; the handlers assume an authenticated staff actor in context.
//
// # Endpoints
//   - GET /              : Filtered, sorted, paginated listing.
//   - GET /{id}          : Single event by ID.
//   - GET /stats/summary : Aggregated totals over a time range.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list)
	router.Get("/stats/summary", handler.summary)
	router.Get("/{id}", handler.getByID)

	return router
}

/*
List returns a window of the audit trail.

GET /api/v1/admin/logs

Description: Applies query-string filters, whitelisted sorting, and
pagination. Successful listings are themselves audited as LOGS_VIEWED.

Request:
  - Query: from, to (RFC 3339), role, operation, status, username, ip,
    sort_by, order (asc|desc), page, limit

Response:
  - 200: []Event with pagination metadata
  - 400: ErrValidation: Unknown operation/status value or malformed timestamp
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	filter, err := filterFromRequest(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request)

	events, total, err := handler.store.List(request.Context(), filter, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Browsing the trail is an auditable action. Best-effort by policy.
	if claims := requestutil.Claims(request); claims != nil {
		if actorID, idErr := claims.UserID(); idErr == nil {
			_ = handler.recorder.Record(request.Context(), Entry{
				Actor:     &Actor{ID: actorID, Username: claims.Username, Role: claims.Role},
				Operation: OpLogsViewed,
				Status:    StatusSuccess,
				IP:        middleware.RealIP(request),
			})
		}
	}

	if events == nil {
		events = []Event{}
	}

	respond.Paginated(writer, events, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
GetByID returns a single audit event.

GET /api/v1/admin/logs/{id}

Response:
  - 200: Event
  - 404: ErrNotFound: Unknown event ID
*/
func (handler *Handler) getByID(writer http.ResponseWriter, request *http.Request) {
	id, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	event, err := handler.store.FindByID(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, event)
}

/*
Summary returns aggregated trail statistics.

GET /api/v1/admin/logs/stats/summary

Request:
  - Query: from, to (RFC 3339, both optional)

Response:
  - 200: Summary
  - 400: ErrValidation: Malformed timestamp
*/
func (handler *Handler) summary(writer http.ResponseWriter, request *http.Request) {
	from, err := parseTimeParam(request, "from")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	to, err := parseTimeParam(request, "to")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	summary, err := handler.store.Summarize(request.Context(), from, to)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, summary)
}

// # Query Parsing

// filterFromRequest builds a [Filter] from the listing query string.
func filterFromRequest(request *http.Request) (Filter, error) {
	query := request.URL.Query()

	filter := Filter{
		Role:     query.Get("role"),
		Username: query.Get("username"),
		IP:       query.Get("ip"),
		SortBy:   query.Get("sort_by"),
		SortAsc:  query.Get("order") == "asc",
	}

	validator := &validate.Validator{}

	if operation := query.Get("operation"); operation != "" {
		if !Operation(operation).Valid() {
			validator.Custom(FieldOperation, true, "is not a known operation")
		}
		filter.Operation = operation
	}

	if status := query.Get("status"); status != "" {
		if !Status(status).Valid() {
			validator.Custom(FieldStatus, true, "is not a known status")
		}
		filter.Status = status
	}

	if err := validator.Err(); err != nil {
		return Filter{}, err
	}

	from, err := parseTimeParam(request, "from")
	if err != nil {
		return Filter{}, err
	}
	filter.From = from

	to, err := parseTimeParam(request, "to")
	if err != nil {
		return Filter{}, err
	}
	filter.To = to

	return filter, nil
}

// parseTimeParam parses an optional RFC 3339 query parameter.
func parseTimeParam(request *http.Request, name string) (*time.Time, error) {
	raw := request.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, validate.RequiredError(name, "must be an RFC 3339 timestamp")
	}

	parsed = parsed.UTC()
	return &parsed, nil
}
