package oauth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oliverbravery/OpenAuth/internal/domain"
	"github.com/oliverbravery/OpenAuth/internal/http/dto"
	jwtx "github.com/oliverbravery/OpenAuth/internal/jwt"
	"github.com/oliverbravery/OpenAuth/internal/metrics"
	"github.com/oliverbravery/OpenAuth/internal/observability/logger"
	"github.com/oliverbravery/OpenAuth/internal/security/password"
	"github.com/oliverbravery/OpenAuth/internal/security/secretbox"
	tokens "github.com/oliverbravery/OpenAuth/internal/security/token"
	"github.com/oliverbravery/OpenAuth/internal/store"
)

// TokenPair es el resultado de un exchange o una rotación.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// TokenService implementa POST /token para ambos grants.
type TokenService interface {
	// ExchangeAuthorizationCode consume el code (single use) contra PKCE y
	// credenciales de cliente, y emite el primer par access/refresh.
	ExchangeAuthorizationCode(ctx context.Context, req dto.TokenRequest) (*TokenPair, error)
	// ExchangeRefreshToken rota el par. Un refresh que no coincide con el
	// hash guardado es un replay: revoca la familia completa.
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
}

// TokenDeps contiene las dependencias del servicio.
type TokenDeps struct {
	Clients        store.ClientStore
	Authorizations store.AuthorizationStore
	Tokens         *jwtx.Manager
	CodeBox        *secretbox.Box
}

type tokenService struct {
	clients store.ClientStore
	authz   store.AuthorizationStore
	tokens  *jwtx.Manager
	codeBox *secretbox.Box
}

func NewTokenService(d TokenDeps) TokenService {
	return &tokenService{
		clients: d.Clients,
		authz:   d.Authorizations,
		tokens:  d.Tokens,
		codeBox: d.CodeBox,
	}
}

func (s *tokenService) ExchangeAuthorizationCode(ctx context.Context, req dto.TokenRequest) (*TokenPair, error) {
	if req.Code == "" || req.CodeVerifier == "" || req.ClientID == "" || req.ClientSecret == "" {
		return nil, ErrMissingParams
	}

	client, err := s.clients.Get(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, err
	}
	if !password.Verify(req.ClientSecret, client.ClientSecretHash) {
		return nil, ErrInvalidClient
	}

	// Descifrar sólo prueba autenticidad del code, no frescura: el dueño
	// recuperado se usa para buscar el registro y comparar contra el
	// plaintext que quedó del consent.
	plain, err := s.codeBox.Decrypt(req.Code)
	if err != nil {
		return nil, ErrInvalidGrant
	}
	username, plainCode, ok := strings.Cut(plain, ":")
	if !ok || username == "" || plainCode == "" {
		return nil, ErrInvalidGrant
	}

	rec, err := s.authz.Get(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}
	if rec.AuthCode == "" || !tokens.Equal(plainCode, rec.AuthCode) {
		return nil, ErrInvalidGrant
	}
	if rec.CodeChallenge == "" || !tokens.Equal(tokens.SHA256Base64URL(req.CodeVerifier), rec.CodeChallenge) {
		return nil, ErrInvalidGrant
	}

	// Single use: limpiar antes de emitir hace que un segundo exchange del
	// mismo code falle en la comparación de arriba.
	rec.AuthCode = ""
	rec.CodeChallenge = ""

	pair, err := s.issuePair(ctx, rec, req.ClientID)
	if err != nil {
		return nil, err
	}

	metrics.TokensIssued("authorization_code")
	logger.From(ctx).Info("authorization code exchanged",
		logger.Username(username),
		logger.ClientID(req.ClientID),
		logger.GrantType("authorization_code"),
	)
	return pair, nil
}

func (s *tokenService) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrMissingParams
	}

	claims, err := s.tokens.Verify(refreshToken, jwtx.KindRefresh)
	if err != nil {
		return nil, ErrInvalidGrant
	}

	rec, err := s.authz.Get(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidGrant
		}
		return nil, err
	}
	if rec.HashedRefreshToken == "" {
		return nil, ErrInvalidGrant
	}

	if !tokens.Equal(tokens.SHA256Base64URL(refreshToken), rec.HashedRefreshToken) {
		// Replay detectado: un refresh firmado y vigente que no es el último
		// emitido. Se revoca la familia entera pisando el hash guardado con
		// el hash de un sentinel fresco, inalcanzable para cualquier token.
		sentinel, serr := tokens.RevocationSentinel()
		if serr == nil {
			rec.HashedRefreshToken = sentinel
			rec.HashedAccessToken = sentinel
			serr = s.authz.Upsert(ctx, rec)
		}
		metrics.RefreshReplay()
		if serr != nil {
			// El request se rechaza igual, pero el último refresh emitido
			// sigue vivo en el store: eso tiene que quedar en el log.
			logger.From(ctx).Error("refresh token replay detected but family revocation failed",
				logger.Username(claims.Subject),
				logger.ClientID(claims.Audience),
				logger.Err(serr),
			)
		} else {
			logger.From(ctx).Warn("refresh token replay detected, family revoked",
				logger.Username(claims.Subject),
				logger.ClientID(claims.Audience),
			)
		}
		return nil, ErrInvalidGrant
	}

	pair, err := s.issuePair(ctx, rec, claims.Audience)
	if err != nil {
		return nil, err
	}

	metrics.TokensIssued("refresh_token")
	logger.From(ctx).Info("token pair rotated",
		logger.Username(claims.Subject),
		logger.ClientID(claims.Audience),
		logger.GrantType("refresh_token"),
	)
	return pair, nil
}

// issuePair emite access+refresh con los scopes consentidos del registro,
// guarda los hashes de ambos y persiste el registro.
func (s *tokenService) issuePair(ctx context.Context, rec *domain.Authorization, audience string) (*TokenPair, error) {
	access, _, err := s.tokens.Issue(jwtx.KindAccess, rec.Username, audience, rec.ConsentedScopes)
	if err != nil {
		return nil, err
	}
	refresh, _, err := s.tokens.Issue(jwtx.KindRefresh, rec.Username, audience, "")
	if err != nil {
		return nil, err
	}

	rec.HashedAccessToken = tokens.SHA256Base64URL(access)
	rec.HashedRefreshToken = tokens.SHA256Base64URL(refresh)
	if err := s.authz.Upsert(ctx, rec); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.TTL(jwtx.KindAccess) / time.Second),
	}, nil
}
