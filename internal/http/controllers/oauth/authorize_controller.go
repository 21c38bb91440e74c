// Package oauth - controllers del flujo authorization code + PKCE.
package oauth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/oliverbravery/OpenAuth/internal/http/dto"
	httperrors "github.com/oliverbravery/OpenAuth/internal/http/errors"
	svc "github.com/oliverbravery/OpenAuth/internal/http/services/oauth"
	"github.com/oliverbravery/OpenAuth/internal/observability/logger"
)

// AuthorizeController maneja GET /authorize.
type AuthorizeController struct {
	service svc.AuthorizeService
}

func NewAuthorizeController(s svc.AuthorizeService) *AuthorizeController {
	return &AuthorizeController{service: s}
}

// Authorize valida cliente y scopes y redirige a /login re-enviando los
// parámetros del request verbatim. Login re-valida todo lo que necesita.
func (c *AuthorizeController) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oauth.authorize"))

	q := r.URL.Query()
	req := dto.AuthorizeRequest{
		ClientID:      strings.TrimSpace(q.Get("client_id")),
		ClientSecret:  strings.TrimSpace(q.Get("client_secret")),
		ResponseType:  strings.TrimSpace(q.Get("response_type")),
		State:         strings.TrimSpace(q.Get("state")),
		CodeChallenge: strings.TrimSpace(q.Get("code_challenge")),
		Scope:         strings.TrimSpace(q.Get("scope")),
	}

	if err := c.service.Authorize(ctx, req); err != nil {
		switch err {
		case svc.ErrMissingParams:
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing required parameters"))
		case svc.ErrUnsupportedResponse:
			httperrors.WriteError(w, httperrors.ErrUnsupportedResponseType)
		case svc.ErrPKCERequired:
			httperrors.WriteError(w, httperrors.ErrPKCERequired)
		case svc.ErrInvalidClient:
			httperrors.WriteError(w, httperrors.ErrInvalidClient)
		case svc.ErrInvalidScope:
			httperrors.WriteError(w, httperrors.ErrInvalidScope)
		default:
			log.Error("authorize failed", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrInternalServerError)
		}
		return
	}

	login := url.URL{Path: "/login", RawQuery: q.Encode()}
	http.Redirect(w, r, login.String(), http.StatusFound)
}
