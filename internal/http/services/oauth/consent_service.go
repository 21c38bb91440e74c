package oauth

import (
	"context"
	"errors"
	"net/url"

	"github.com/oliverbravery/OpenAuth/internal/http/dto"
	jwtx "github.com/oliverbravery/OpenAuth/internal/jwt"
	"github.com/oliverbravery/OpenAuth/internal/observability/logger"
	"github.com/oliverbravery/OpenAuth/internal/profile"
	"github.com/oliverbravery/OpenAuth/internal/scope"
	"github.com/oliverbravery/OpenAuth/internal/security/secretbox"
	tokens "github.com/oliverbravery/OpenAuth/internal/security/token"
	"github.com/oliverbravery/OpenAuth/internal/store"

	"github.com/oliverbravery/OpenAuth/internal/domain"
)

// ConsentService procesa la decisión del usuario. En accept: aprovisiona el
// perfil, emite el authorization code cifrado y deja el registro de
// autorización listo para el exchange.
type ConsentService interface {
	// Consent devuelve la URL de redirect al cliente (?code=&state=).
	Consent(ctx context.Context, req dto.ConsentRequest) (string, error)
}

// ConsentDeps contiene las dependencias del servicio.
type ConsentDeps struct {
	Clients        store.ClientStore
	Authorizations store.AuthorizationStore
	Profiles       profile.Service
	Tokens         *jwtx.Manager
	CodeBox        *secretbox.Box
}

type consentService struct {
	clients  store.ClientStore
	authz    store.AuthorizationStore
	profiles profile.Service
	tokens   *jwtx.Manager
	codeBox  *secretbox.Box
}

func NewConsentService(d ConsentDeps) ConsentService {
	return &consentService{
		clients:  d.Clients,
		authz:    d.Authorizations,
		profiles: d.Profiles,
		tokens:   d.Tokens,
		codeBox:  d.CodeBox,
	}
}

func (s *consentService) Consent(ctx context.Context, req dto.ConsentRequest) (string, error) {
	if req.StateToken == "" || req.ClientID == "" || req.State == "" {
		return "", ErrMissingParams
	}

	// El state token prueba que hubo un login reciente para exactamente este
	// (usuario, cliente, scope). Cualquier divergencia invalida el consent.
	claims, err := s.tokens.Verify(req.StateToken, jwtx.KindState)
	if err != nil {
		return "", ErrInvalidStateToken
	}
	if claims.Audience != req.ClientID || claims.Scope != req.Scope {
		return "", ErrInvalidStateToken
	}
	username := claims.Subject

	if !req.Accept {
		logger.From(ctx).Info("consent denied",
			logger.Username(username),
			logger.ClientID(req.ClientID),
		)
		return "", ErrConsentDenied
	}

	client, err := s.clients.Get(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidClient
		}
		return "", err
	}

	accepted, err := scope.ParseList(req.Scope)
	if err != nil {
		return "", ErrInvalidScope
	}
	if err := s.profiles.Provision(ctx, req.ClientID, username, accepted); err != nil {
		if errors.Is(err, scope.ErrUnknownClient) || errors.Is(err, scope.ErrUnknownScope) || errors.Is(err, scope.ErrDeveloperOnly) {
			return "", ErrInvalidScope
		}
		return "", err
	}

	// Code opaco: encrypt(username:random). El descifrado recupera al dueño
	// sin lookup, pero el exchange igual compara contra el plaintext guardado.
	plainCode, err := tokens.GenerateOpaque(32)
	if err != nil {
		return "", err
	}
	code, err := s.codeBox.Encrypt(username + ":" + plainCode)
	if err != nil {
		return "", err
	}

	// Un slot por usuario: un consent nuevo pisa cualquier code pendiente.
	if err := s.authz.Upsert(ctx, &domain.Authorization{
		Username:        username,
		CodeChallenge:   req.CodeChallenge,
		AuthCode:        plainCode,
		ConsentedScopes: req.Scope,
	}); err != nil {
		return "", err
	}

	logger.From(ctx).Info("consent accepted",
		logger.Username(username),
		logger.ClientID(req.ClientID),
		logger.Scope(req.Scope),
	)

	redirect, err := url.Parse(client.RedirectURI)
	if err != nil {
		return "", err
	}
	q := redirect.Query()
	q.Set("code", code)
	q.Set("state", req.State)
	redirect.RawQuery = q.Encode()
	return redirect.String(), nil
}
