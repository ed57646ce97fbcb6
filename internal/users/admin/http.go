// Copyright (c) 2026 Optica. All rights reserved.

package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/optica-app/optica/internal/audit"
	"github.com/optica-app/optica/internal/platform/middleware"
	requestutil "github.com/optica-app/optica/internal/platform/request"
	"github.com/optica-app/optica/internal/platform/respond"
	"github.com/optica-app/optica/internal/platform/sec"
	"github.com/optica-app/optica/internal/platform/validate"
	"github.com/optica-app/optica/internal/users/auth"
	"github.com/optica-app/optica/pkg/pagination"
)

// Handler exposes the admin user management endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs the admin [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes assembles the user management router. Role gating is layered here:
// staff can read, only admins can mutate.
func (handler *Handler) Routes(gate middleware.AccountGate) chi.Router {
	router := chi.NewRouter()

	router.Group(func(staff chi.Router) {
		staff.Use(middleware.RequireRole(gate, sec.RoleStaff))
		staff.Get("/", handler.list)
		staff.Get("/{id}", handler.get)
	})

	router.Group(func(admins chi.Router) {
		admins.Use(middleware.RequireRole(gate, sec.RoleAdmin))
		admins.Post("/", handler.create)
		admins.Patch("/{id}", handler.update)
		admins.Delete("/{id}", handler.delete)
		admins.Post("/{id}/reset-password", handler.resetPassword)
	})

	return router
}

// # Request Payloads

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Email     *string `json:"email"`
	Role      *string `json:"role"`
	IsActive  *bool   `json:"is_active"`
	IsBlocked *bool   `json:"is_blocked"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// requestActor extracts the acting administrator from the verified claims.
func requestActor(request *http.Request) (*audit.Actor, error) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	return &audit.Actor{ID: userID, Username: claims.Username, Role: claims.Role}, nil
}

// # Handlers

func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	users, total, err := handler.service.List(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if users == nil {
		users = []auth.User{}
	}

	respond.Paginated(writer, users, pagination.NewMeta(params.Page, params.Limit, total))
}

func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.Get(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

func (handler *Handler) create(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload createUserRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required(auth.FieldUsername, payload.Username).
		MinLen(auth.FieldUsername, payload.Username, 3).
		MaxLen(auth.FieldUsername, payload.Username, 30).
		Required(auth.FieldEmail, payload.Email).
		Email(auth.FieldEmail, payload.Email).
		Required(auth.FieldPassword, payload.Password).
		MaxLen(auth.FieldPassword, payload.Password, 128).
		Required(auth.FieldRole, payload.Role).
		OneOf(auth.FieldRole, payload.Role, string(sec.RoleUser), string(sec.RoleStaff), string(sec.RoleAdmin))
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.Create(request.Context(), actor, CreateInput{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
		Role:     sec.Role(payload.Role),
	}, middleware.RealIP(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user)
}

func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	userID, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload updateUserRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	if payload.Email != nil {
		validator.Email(auth.FieldEmail, *payload.Email)
	}
	if payload.Role != nil {
		validator.OneOf(auth.FieldRole, *payload.Role, string(sec.RoleUser), string(sec.RoleStaff), string(sec.RoleAdmin))
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	input := UpdateInput{
		Email:     payload.Email,
		IsActive:  payload.IsActive,
		IsBlocked: payload.IsBlocked,
	}
	if payload.Role != nil {
		role := sec.Role(*payload.Role)
		input.Role = &role
	}

	user, err := handler.service.Update(request.Context(), actor, userID, input, middleware.RealIP(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

func (handler *Handler) delete(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	userID, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.Delete(request.Context(), actor, userID, middleware.RealIP(request)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	userID, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required("new_password", payload.NewPassword).
		MaxLen("new_password", payload.NewPassword, 128)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.ResetPassword(request.Context(), actor, userID, payload.NewPassword, middleware.RealIP(request)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]interface{}{auth.FieldMessage: "Password reset"})
}
