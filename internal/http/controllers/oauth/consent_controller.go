package oauth

import (
	"net/http"
	"strings"

	"github.com/oliverbravery/OpenAuth/internal/http/dto"
	httperrors "github.com/oliverbravery/OpenAuth/internal/http/errors"
	svc "github.com/oliverbravery/OpenAuth/internal/http/services/oauth"
	"github.com/oliverbravery/OpenAuth/internal/observability/logger"
)

// ConsentController maneja POST /consent.
type ConsentController struct {
	service svc.ConsentService
}

func NewConsentController(s svc.ConsentService) *ConsentController {
	return &ConsentController{service: s}
}

// Consent procesa la decisión del usuario. En accept redirige al
// redirect_uri del cliente con ?code=&state=; en deny responde 403.
func (c *ConsentController) Consent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oauth.consent"))

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("invalid form data"))
		return
	}
	form := func(k string) string { return strings.TrimSpace(r.PostForm.Get(k)) }

	req := dto.ConsentRequest{
		Accept:     form("accept") == "true",
		StateToken: form("state_token"),
		AuthorizeRequest: dto.AuthorizeRequest{
			ClientID:      form("client_id"),
			State:         form("state"),
			CodeChallenge: form("code_challenge"),
			Scope:         form("scope"),
		},
	}

	redirect, err := c.service.Consent(ctx, req)
	if err != nil {
		switch err {
		case svc.ErrMissingParams:
			httperrors.WriteError(w, httperrors.ErrMissingFields)
		case svc.ErrInvalidStateToken:
			httperrors.WriteError(w, httperrors.ErrForbidden.WithDetail("state token invalid or stale"))
		case svc.ErrConsentDenied:
			httperrors.WriteError(w, httperrors.ErrConsentDenied)
		case svc.ErrInvalidClient:
			httperrors.WriteError(w, httperrors.ErrInvalidClient)
		case svc.ErrInvalidScope:
			httperrors.WriteError(w, httperrors.ErrInvalidScope)
		default:
			log.Error("consent failed", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrInternalServerError)
		}
		return
	}

	http.Redirect(w, r, redirect, http.StatusFound)
}
