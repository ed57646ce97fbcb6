// Copyright (c) 2026 Optica. All rights reserved.

package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/optica-app/optica/internal/audit"
	"github.com/optica-app/optica/internal/platform/middleware"
	requestutil "github.com/optica-app/optica/internal/platform/request"
	"github.com/optica-app/optica/internal/platform/respond"
	"github.com/optica-app/optica/pkg/pagination"
)

// Handler exposes the catalog endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs the catalog [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes assembles the catalog router. The caller mounts it behind the
// authentication gate.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Get("/", handler.list)
	router.Get("/{id}", handler.get)
	return router
}

// requestActor builds the audit actor from the authenticated claims.
func requestActor(request *http.Request) *audit.Actor {
	claims := requestutil.Claims(request)
	if claims == nil {
		return nil
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil
	}
	return &audit.Actor{ID: userID, Username: claims.Username, Role: claims.Role}
}

func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	products, total, err := handler.service.List(request.Context(), requestActor(request), params, middleware.RealIP(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, products, pagination.NewMeta(params.Page, params.Limit, total))
}

func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	productID, err := requestutil.IntParam(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	product, err := handler.service.Get(request.Context(), requestActor(request), productID, middleware.RealIP(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, product)
}
