package oauth

import (
	"context"
	"errors"

	"github.com/oliverbravery/OpenAuth/internal/captcha"
	"github.com/oliverbravery/OpenAuth/internal/http/dto"
	jwtx "github.com/oliverbravery/OpenAuth/internal/jwt"
	"github.com/oliverbravery/OpenAuth/internal/metrics"
	"github.com/oliverbravery/OpenAuth/internal/observability/logger"
	"github.com/oliverbravery/OpenAuth/internal/profile"
	"github.com/oliverbravery/OpenAuth/internal/scope"
	"github.com/oliverbravery/OpenAuth/internal/security/password"
	"github.com/oliverbravery/OpenAuth/internal/store"
)

// LoginResult agrupa lo que el form de consentimiento necesita: la vista de
// disclosure y el state token que liga este login al consent.
type LoginResult struct {
	Consent    *profile.ConsentDetails
	StateToken string
}

// LoginService autentica al usuario dentro del flujo de autorización.
// Re-valida los scopes pedidos (defensa en profundidad: el redirect desde
// authorize no es confiable por sí solo) y emite el state token.
type LoginService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*LoginResult, error)
}

// LoginDeps contiene las dependencias del servicio.
type LoginDeps struct {
	Accounts store.AccountStore
	Resolver *scope.Resolver
	Profiles profile.Service
	Captcha  captcha.Verifier
	Tokens   *jwtx.Manager
}

type loginService struct {
	accounts store.AccountStore
	resolver *scope.Resolver
	profiles profile.Service
	captcha  captcha.Verifier
	tokens   *jwtx.Manager
}

func NewLoginService(d LoginDeps) LoginService {
	return &loginService{
		accounts: d.Accounts,
		resolver: d.Resolver,
		profiles: d.Profiles,
		captcha:  d.Captcha,
		tokens:   d.Tokens,
	}
}

func (s *loginService) Login(ctx context.Context, req dto.LoginRequest) (*LoginResult, error) {
	if req.Username == "" || req.Password == "" || req.ClientID == "" {
		return nil, ErrMissingParams
	}

	if err := s.captcha.Verify(ctx, req.CaptchaResponse); err != nil {
		metrics.LoginFailure()
		return nil, ErrCaptchaFailed
	}

	account, err := s.accounts.Get(ctx, req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// rechazo uniforme: no filtrar si existe el usuario
			metrics.LoginFailure()
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(req.Password, account.HashedPassword) {
		metrics.LoginFailure()
		return nil, ErrInvalidCredentials
	}

	requested, err := scope.ParseList(req.Scope)
	if err != nil {
		return nil, ErrInvalidScope
	}
	if _, err := s.resolver.Resolve(ctx, requested); err != nil {
		if errors.Is(err, scope.ErrUnknownClient) || errors.Is(err, scope.ErrUnknownScope) || errors.Is(err, scope.ErrDeveloperOnly) {
			return nil, ErrInvalidScope
		}
		return nil, err
	}

	consent, err := s.profiles.ConsentView(ctx, req.ClientID, req.Username, requested)
	if err != nil {
		return nil, err
	}

	// El state token liga (sub, aud, scope) del login al consent: el consent
	// sólo acepta decisiones sobre exactamente lo que se mostró acá.
	stateToken, _, err := s.tokens.Issue(jwtx.KindState, req.Username, req.ClientID, req.Scope)
	if err != nil {
		return nil, err
	}

	logger.From(ctx).Info("login accepted",
		logger.Username(req.Username),
		logger.ClientID(req.ClientID),
	)
	return &LoginResult{Consent: consent, StateToken: stateToken}, nil
}
