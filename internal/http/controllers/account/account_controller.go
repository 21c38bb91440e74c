// Package account - controllers de registro y atributos de cuenta.
package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/oliverbravery/OpenAuth/internal/http/dto"
	httperrors "github.com/oliverbravery/OpenAuth/internal/http/errors"
	"github.com/oliverbravery/OpenAuth/internal/http/helpers"
	"github.com/oliverbravery/OpenAuth/internal/http/middlewares"
	svc "github.com/oliverbravery/OpenAuth/internal/http/services/account"
	"github.com/oliverbravery/OpenAuth/internal/observability/logger"
)

// Controller maneja /account/*.
type Controller struct {
	service svc.Service
}

func NewController(s svc.Service) *Controller {
	return &Controller{service: s}
}

// Register maneja POST /account/register.
func (c *Controller) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("account.register"))

	var req dto.RegisterRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	if err := c.service.Register(ctx, req); err != nil {
		switch err {
		case svc.ErrMissingFields:
			httperrors.WriteError(w, httperrors.ErrMissingFields)
		case svc.ErrUsernameTaken:
			httperrors.WriteError(w, httperrors.ErrUsernameTaken)
		default:
			log.Error("register failed", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrInternalServerError)
		}
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, map[string]string{"username": req.Username})
}

// ReadAttributes maneja GET /account/{username}. Requiere access token; el
// allow-list sale de los scopes del token.
func (c *Controller) ReadAttributes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("account.read"))

	username := chi.URLParam(r, "username")
	claims := middlewares.GetClaims(ctx)

	resp, err := c.service.ReadAttributes(ctx, username, claims)
	if err != nil {
		c.writeServiceError(w, log, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, resp)
}

// UpdateAttributes maneja PATCH /account/{username}.
func (c *Controller) UpdateAttributes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("account.update"))

	username := chi.URLParam(r, "username")
	claims := middlewares.GetClaims(ctx)

	var req dto.UpdateAttributesRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	if err := c.service.UpdateAttributes(ctx, username, claims, req); err != nil {
		c.writeServiceError(w, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *Controller) writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch err {
	case svc.ErrWrongSubject:
		httperrors.WriteError(w, httperrors.ErrForbidden)
	case svc.ErrForbiddenAttribute:
		httperrors.WriteError(w, httperrors.ErrInsufficientScopes)
	case svc.ErrInvalidMetadataValue:
		httperrors.WriteError(w, httperrors.ErrInvalidMetadataValue)
	case svc.ErrNotFound:
		httperrors.WriteError(w, httperrors.ErrUserNotFound)
	default:
		log.Error("account endpoint error", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}
