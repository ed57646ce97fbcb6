// Copyright (c) 2026 Optica. All rights reserved.

package auth

import (
	"net/http"

	"github.com/optica-app/optica/internal/platform/middleware"
	requestutil "github.com/optica-app/optica/internal/platform/request"
	"github.com/optica-app/optica/internal/platform/respond"
	"github.com/optica-app/optica/internal/platform/validate"
)

type verifyTwoFARequest struct {
	Code string `json:"code"`
}

type disableTwoFARequest struct {
	Password string `json:"password"`
}

func (handler *Handler) enableTwoFA(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	setup, err := handler.service.EnableTwoFA(request.Context(), userID, middleware.RealIP(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]interface{}{
		"secret":           setup.Secret,
		"provisioning_uri": setup.ProvisioningURI,
		"qr_code":          setup.QRCode,
	})
}

func (handler *Handler) verifyTwoFA(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload verifyTwoFARequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.
		Required(FieldCode, payload.Code).
		Digits(FieldCode, payload.Code, 6)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.VerifyTwoFA(request.Context(), userID, payload.Code, middleware.RealIP(request)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]interface{}{FieldMessage: "Two-factor authentication enabled"})
}

func (handler *Handler) disableTwoFA(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload disableTwoFARequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldPassword, payload.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DisableTwoFA(request.Context(), userID, payload.Password, middleware.RealIP(request)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]interface{}{FieldMessage: "Two-factor authentication disabled"})
}
