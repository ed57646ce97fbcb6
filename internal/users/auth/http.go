// Copyright (c) 2026 Optica. All rights reserved.

/*
HTTP transport for the authentication flows.

Handlers validate request shape only; every business rule lives in the
Service. Tokens travel exclusively in the JSON body and the Authorization
header. No cookies are set anywhere in this API.
*/

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/optica-app/optica/internal/audit"
	"github.com/optica-app/optica/internal/platform/apperr"
	"github.com/optica-app/optica/internal/platform/idp"
	"github.com/optica-app/optica/internal/platform/middleware"
	requestutil "github.com/optica-app/optica/internal/platform/request"
	"github.com/optica-app/optica/internal/platform/respond"
	"github.com/optica-app/optica/internal/platform/validate"
)

// Handler exposes the auth service over HTTP.
type Handler struct {
	service        *Service
	googleVerifier idp.IdentityVerifier
	accessTokenTTL time.Duration
}

/*
NewHandler constructs the auth [Handler].

Parameters:
  - service: *Service
  - googleVerifier: idp.IdentityVerifier (nil disables federated login)
  - accessTokenTTL: time.Duration (reported as expires_in on token responses)

Returns:
  - *Handler: Ready to mount
*/
func NewHandler(service *Service, googleVerifier idp.IdentityVerifier, accessTokenTTL time.Duration) *Handler {
	return &Handler{
		service:        service,
		googleVerifier: googleVerifier,
		accessTokenTTL: accessTokenTTL,
	}
}

// Routes assembles the router for the auth endpoints. The service itself is
// the session gate for the protected group.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Post("/verify-email", handler.verifyEmail)
	router.Post("/resend-verification", handler.resendVerification)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/federated/google", handler.federatedGoogle)

	router.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAuth(handler.service))
		protected.Get("/me", handler.me)
		protected.Post("/logout", handler.logout)
		protected.Post("/2fa/enable", handler.enableTwoFA)
		protected.Post("/2fa/verify", handler.verifyTwoFA)
		protected.Post("/2fa/disable", handler.disableTwoFA)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyEmailRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

type resendVerificationRequest struct {
	Username string `json:"username"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type federatedRequest struct {
	IDToken string `json:"id_token"`
}

// # Handlers

func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var payload registerRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldUsername, payload.Username).
		MinLen(FieldUsername, payload.Username, 3).
		MaxLen(FieldUsername, payload.Username, 30).
		Required(FieldEmail, payload.Email).
		Email(FieldEmail, payload.Email).
		Required(FieldPassword, payload.Password).
		MaxLen(FieldPassword, payload.Password, 128)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.Register(request.Context(), RegisterInput{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
		IP:       middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]interface{}{
		FieldUser:    user,
		FieldMessage: "Verification code sent to " + user.Email,
	})
}

func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	var payload verifyEmailRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldUsername, payload.Username).
		Required(FieldCode, payload.Code).
		Digits(FieldCode, payload.Code, VerificationCodeLength)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.VerifyEmail(request.Context(), payload.Username, payload.Code, middleware.RealIP(request)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]interface{}{FieldMessage: "Email verified"})
}

func (handler *Handler) resendVerification(writer http.ResponseWriter, request *http.Request) {
	var payload resendVerificationRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsername, payload.Username)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.ResendVerification(request.Context(), payload.Username); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]interface{}{FieldMessage: "Verification code resent"})
}

func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var payload loginRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldUsername, payload.Username).
		Required(FieldPassword, payload.Password)
	if payload.TOTPCode != "" {
		validator.Digits(FieldTOTPCode, payload.TOTPCode, 6)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.service.Login(request.Context(), LoginInput{
		Username: payload.Username,
		Password: payload.Password,
		TOTPCode: payload.TOTPCode,
		IP:       middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, handler.sessionResponse(session))
}

func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var payload refreshRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldRefreshToken, payload.RefreshToken)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	accessToken, err := handler.service.Refresh(request.Context(), payload.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]interface{}{
		FieldAccessToken: accessToken,
		FieldTokenType:   "Bearer",
		FieldExpiresIn:   int(handler.accessTokenTTL.Seconds()),
	})
}

func (handler *Handler) federatedGoogle(writer http.ResponseWriter, request *http.Request) {
	if handler.googleVerifier == nil {
		respond.Error(writer, request, apperr.PreconditionFailed("Federated login is not configured"))
		return
	}

	var payload federatedRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldIDToken, payload.IDToken)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	identity, err := handler.googleVerifier.Verify(request.Context(), payload.IDToken)
	if err != nil {
		respond.Error(writer, request, apperr.Unauthorized("Federated identity could not be verified"))
		return
	}

	session, err := handler.service.FederatedLogin(request.Context(), identity, middleware.RealIP(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, handler.sessionResponse(session))
}

func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	userID, err := claims.UserID()
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	actor := &audit.Actor{ID: userID, Username: claims.Username, Role: claims.Role}
	if err := handler.service.Logout(request.Context(), actor, middleware.RealIP(request)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]interface{}{FieldMessage: "Logged out"})
}

func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.Me(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// sessionResponse shapes the token-pair payload shared by login and
// federated login.
func (handler *Handler) sessionResponse(session *LoginSession) map[string]interface{} {
	return map[string]interface{}{
		FieldAccessToken:  session.AccessToken,
		FieldRefreshToken: session.RefreshToken,
		FieldTokenType:    "Bearer",
		FieldExpiresIn:    int(handler.accessTokenTTL.Seconds()),
		FieldUser:         session.User,
	}
}
