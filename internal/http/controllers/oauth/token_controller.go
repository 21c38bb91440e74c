package oauth

import (
	"net/http"
	"strings"

	"github.com/oliverbravery/OpenAuth/internal/http/dto"
	"github.com/oliverbravery/OpenAuth/internal/http/helpers"
	svc "github.com/oliverbravery/OpenAuth/internal/http/services/oauth"
	"github.com/oliverbravery/OpenAuth/internal/observability/logger"
)

// TokenController maneja POST /token.
type TokenController struct {
	service svc.TokenService
}

func NewTokenController(s svc.TokenService) *TokenController {
	return &TokenController{service: s}
}

// Token implementa los grants authorization_code y refresh_token.
func (c *TokenController) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oauth.token"))

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "invalid form data")
		return
	}
	form := func(k string) string { return strings.TrimSpace(r.PostForm.Get(k)) }

	grantType := form("grant_type")
	log = log.With(logger.GrantType(grantType))

	var pair *svc.TokenPair
	var err error
	switch grantType {
	case "authorization_code":
		pair, err = c.service.ExchangeAuthorizationCode(ctx, dto.TokenRequest{
			GrantType:    grantType,
			Code:         form("code"),
			CodeVerifier: form("code_verifier"),
			ClientID:     form("client_id"),
			ClientSecret: form("client_secret"),
		})
	case "refresh_token":
		pair, err = c.service.ExchangeRefreshToken(ctx, form("refresh_token"))
	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "grant_type must be authorization_code or refresh_token")
		return
	}

	if err != nil {
		switch err {
		case svc.ErrMissingParams:
			writeOAuthError(w, http.StatusBadRequest, "invalid_request", "missing or invalid parameters")
		case svc.ErrInvalidClient:
			writeOAuthError(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
		case svc.ErrInvalidGrant:
			writeOAuthError(w, http.StatusUnauthorized, "invalid_grant", "authorization code or refresh token is invalid, expired or revoked")
		default:
			log.Error("token endpoint error", logger.Err(err))
			writeOAuthError(w, http.StatusInternalServerError, "server_error", "an unexpected error occurred")
		}
		return
	}

	writeTokenResponse(w, pair)
}

// oauthError es el shape de error del RFC 6749 para /token.
type oauthError struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// Los errores de /token usan el shape del RFC 6749 y headers no-cache.
func writeOAuthError(w http.ResponseWriter, status int, errorCode, description string) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	helpers.WriteJSON(w, status, oauthError{Error: errorCode, Description: description})
}

func writeTokenResponse(w http.ResponseWriter, pair *svc.TokenPair) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	helpers.WriteJSON(w, http.StatusOK, dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
	})
}
