package oauth

import (
	"net/http"
	"strings"

	"github.com/oliverbravery/OpenAuth/internal/http/dto"
	httperrors "github.com/oliverbravery/OpenAuth/internal/http/errors"
	"github.com/oliverbravery/OpenAuth/internal/http/helpers"
	svc "github.com/oliverbravery/OpenAuth/internal/http/services/oauth"
	"github.com/oliverbravery/OpenAuth/internal/observability/logger"
)

// LoginController maneja GET y POST /login.
type LoginController struct {
	service svc.LoginService
}

func NewLoginController(s svc.LoginService) *LoginController {
	return &LoginController{service: s}
}

// Describe responde GET /login con los campos que el form debe resubmitir.
// El rendering HTML es del frontend; acá sólo se describe el contrato.
func (c *LoginController) Describe(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"fields": []string{"username", "password", "captcha_response"},
		"carried_params": []string{
			"client_id", "client_secret", "response_type",
			"state", "code_challenge", "scope",
		},
		"submit": map[string]string{"method": "POST", "path": "/login"},
	})
}

// Login autentica al usuario y devuelve la vista de consentimiento más el
// state token para el POST /consent.
func (c *LoginController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oauth.login"))

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("invalid form data"))
		return
	}
	form := func(k string) string { return strings.TrimSpace(r.PostForm.Get(k)) }

	req := dto.LoginRequest{
		Username:        form("username"),
		Password:        form("password"),
		CaptchaResponse: form("captcha_response"),
		AuthorizeRequest: dto.AuthorizeRequest{
			ClientID:      form("client_id"),
			ClientSecret:  form("client_secret"),
			ResponseType:  form("response_type"),
			State:         form("state"),
			CodeChallenge: form("code_challenge"),
			Scope:         form("scope"),
		},
	}

	result, err := c.service.Login(ctx, req)
	if err != nil {
		switch err {
		case svc.ErrMissingParams:
			httperrors.WriteError(w, httperrors.ErrMissingFields)
		case svc.ErrInvalidCredentials:
			httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
		case svc.ErrCaptchaFailed:
			httperrors.WriteError(w, httperrors.ErrCaptchaFailed)
		case svc.ErrInvalidScope:
			httperrors.WriteError(w, httperrors.ErrInvalidScope)
		default:
			log.Error("login failed", logger.Err(err))
			httperrors.WriteError(w, httperrors.ErrInternalServerError)
		}
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.LoginResponse{
		StateToken: result.StateToken,
		Consent:    result.Consent,
	})
}
