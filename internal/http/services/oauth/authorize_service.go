// Package oauth contiene los servicios del flujo authorization code + PKCE.
package oauth

import (
	"context"
	"errors"

	"github.com/oliverbravery/OpenAuth/internal/http/dto"
	"github.com/oliverbravery/OpenAuth/internal/observability/logger"
	"github.com/oliverbravery/OpenAuth/internal/scope"
	"github.com/oliverbravery/OpenAuth/internal/security/password"
	"github.com/oliverbravery/OpenAuth/internal/store"
)

// Errores del flujo de autorización. Los controllers los mapean a status codes.
var (
	ErrMissingParams        = errors.New("oauth: missing required parameters")
	ErrUnsupportedResponse  = errors.New("oauth: response_type must be code")
	ErrPKCERequired         = errors.New("oauth: PKCE S256 code_challenge required")
	ErrInvalidClient        = errors.New("oauth: invalid client credentials")
	ErrInvalidScope         = errors.New("oauth: invalid requested scope")
	ErrInvalidCredentials   = errors.New("oauth: invalid username or password")
	ErrCaptchaFailed        = errors.New("oauth: captcha verification failed")
	ErrConsentDenied        = errors.New("oauth: user denied consent")
	ErrInvalidStateToken    = errors.New("oauth: state token invalid or stale")
	ErrInvalidGrant         = errors.New("oauth: grant is invalid, expired or revoked")
	ErrUnsupportedGrantType = errors.New("oauth: unsupported grant_type")
)

// AuthorizeService valida el arranque del flujo: credenciales de cliente y
// scopes pedidos. El redirect a login re-envía los parámetros verbatim.
type AuthorizeService interface {
	Authorize(ctx context.Context, req dto.AuthorizeRequest) error
}

// AuthorizeDeps contiene las dependencias del servicio.
type AuthorizeDeps struct {
	Clients  store.ClientStore
	Resolver *scope.Resolver
}

type authorizeService struct {
	clients  store.ClientStore
	resolver *scope.Resolver
}

func NewAuthorizeService(d AuthorizeDeps) AuthorizeService {
	return &authorizeService{clients: d.Clients, resolver: d.Resolver}
}

func (s *authorizeService) Authorize(ctx context.Context, req dto.AuthorizeRequest) error {
	if req.ClientID == "" || req.ClientSecret == "" || req.State == "" {
		return ErrMissingParams
	}
	if req.ResponseType != "code" {
		return ErrUnsupportedResponse
	}
	if req.CodeChallenge == "" {
		return ErrPKCERequired
	}

	if err := s.checkClient(ctx, req.ClientID, req.ClientSecret); err != nil {
		return err
	}

	requested, err := scope.ParseList(req.Scope)
	if err != nil {
		return ErrInvalidScope
	}
	if _, err := s.resolver.Resolve(ctx, requested); err != nil {
		if errors.Is(err, scope.ErrUnknownClient) || errors.Is(err, scope.ErrUnknownScope) || errors.Is(err, scope.ErrDeveloperOnly) {
			return ErrInvalidScope
		}
		return err
	}

	logger.From(ctx).Info("authorize accepted",
		logger.ClientID(req.ClientID),
		logger.Scope(req.Scope),
	)
	return nil
}

// checkClient valida client_id + client_secret contra el hash persistido.
// El rechazo es uniforme: no distingue cliente inexistente de secret inválido.
func (s *authorizeService) checkClient(ctx context.Context, clientID, clientSecret string) error {
	client, err := s.clients.Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidClient
		}
		return err
	}
	if !password.Verify(clientSecret, client.ClientSecretHash) {
		return ErrInvalidClient
	}
	return nil
}
