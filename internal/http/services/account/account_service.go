// Package account contiene registro de cuentas y los endpoints de atributos
// gobernados por el allow-list derivado de scopes.
package account

import (
	"context"
	"errors"

	"github.com/oliverbravery/OpenAuth/internal/domain"
	"github.com/oliverbravery/OpenAuth/internal/http/dto"
	jwtx "github.com/oliverbravery/OpenAuth/internal/jwt"
	"github.com/oliverbravery/OpenAuth/internal/observability/logger"
	"github.com/oliverbravery/OpenAuth/internal/scope"
	"github.com/oliverbravery/OpenAuth/internal/security/password"
	"github.com/oliverbravery/OpenAuth/internal/store"
)

var (
	ErrMissingFields        = errors.New("account: missing required fields")
	ErrUsernameTaken        = errors.New("account: username already taken")
	ErrNotFound             = errors.New("account: not found")
	ErrForbiddenAttribute   = errors.New("account: attribute not covered by granted scopes")
	ErrInvalidMetadataValue = errors.New("account: metadata value does not match schema type")
	ErrWrongSubject         = errors.New("account: token subject does not match resource")
)

// Service maneja registro y lectura/escritura de atributos.
type Service interface {
	Register(ctx context.Context, req dto.RegisterRequest) error
	// ReadAttributes devuelve los atributos de cuenta y la metadata del perfil
	// que los scopes del access token permiten leer.
	ReadAttributes(ctx context.Context, username string, claims *jwtx.Claims) (*dto.AttributesResponse, error)
	// UpdateAttributes aplica escrituras permitidas por los scopes. Rechaza la
	// operación completa ante el primer atributo no permitido o mal tipado.
	UpdateAttributes(ctx context.Context, username string, claims *jwtx.Claims, req dto.UpdateAttributesRequest) error
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Accounts store.AccountStore
	Clients  store.ClientStore
}

type service struct {
	accounts store.AccountStore
	clients  store.ClientStore
}

func NewService(d Deps) Service {
	return &service{accounts: d.Accounts, clients: d.Clients}
}

func (s *service) Register(ctx context.Context, req dto.RegisterRequest) error {
	if req.Username == "" || req.Password == "" || req.Email == "" {
		return ErrMissingFields
	}
	hashed, err := password.Hash(req.Password)
	if err != nil {
		return err
	}
	account := &domain.Account{
		Username:       req.Username,
		DisplayName:    req.DisplayName,
		Email:          req.Email,
		HashedPassword: hashed,
		Role:           domain.AccountRoleStandard,
	}
	if err := s.accounts.Put(ctx, account); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return ErrUsernameTaken
		}
		return err
	}
	logger.From(ctx).Info("account registered", logger.Username(req.Username))
	return nil
}

func (s *service) ReadAttributes(ctx context.Context, username string, claims *jwtx.Claims) (*dto.AttributesResponse, error) {
	account, grants, err := s.loadGrants(ctx, username, claims)
	if err != nil {
		return nil, err
	}

	resp := &dto.AttributesResponse{Attributes: map[string]any{}}
	for name, access := range grants.Account {
		if !access.CanRead() {
			continue
		}
		if v, ok := domain.GetAccountAttribute(account, name); ok {
			resp.Attributes[name] = v
		}
	}

	if p := account.Profile(claims.Audience); p != nil {
		for name, access := range grants.Metadata {
			if !access.CanRead() {
				continue
			}
			if v, ok := p.Metadata[name]; ok {
				if resp.Metadata == nil {
					resp.Metadata = map[string]any{}
				}
				resp.Metadata[name] = v
			}
		}
	}
	return resp, nil
}

func (s *service) UpdateAttributes(ctx context.Context, username string, claims *jwtx.Claims, req dto.UpdateAttributesRequest) error {
	account, grants, err := s.loadGrants(ctx, username, claims)
	if err != nil {
		return err
	}

	// Validar todo antes de escribir nada: la operación es atómica respecto
	// del registro en memoria, un rechazo no deja escrituras parciales.
	for name := range req.Attributes {
		if !grants.CanWriteAccount(name) {
			return ErrForbiddenAttribute
		}
	}

	var client *domain.Client
	if len(req.Metadata) > 0 {
		client, err = s.clients.Get(ctx, claims.Audience)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		for name, value := range req.Metadata {
			if !grants.CanWriteMetadata(name) {
				return ErrForbiddenAttribute
			}
			attr := client.MetadataAttribute(name)
			if attr == nil {
				return ErrForbiddenAttribute
			}
			if err := scope.CheckMetadataValue(attr.Type, value); err != nil {
				return ErrInvalidMetadataValue
			}
		}
	}

	for name, value := range req.Attributes {
		if !domain.SetAccountAttribute(account, name, value) {
			return ErrForbiddenAttribute
		}
	}
	if len(req.Metadata) > 0 {
		p := account.Profile(claims.Audience)
		if p == nil {
			return ErrForbiddenAttribute
		}
		if p.Metadata == nil {
			p.Metadata = map[string]any{}
		}
		for name, value := range req.Metadata {
			p.Metadata[name] = value
		}
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// loadGrants carga la cuenta y deriva el allow-list de atributos a partir del
// claim scope del token, quedándose sólo con los scopes declarados por el
// cliente audiencia (sin sharing transitivo entre clientes).
func (s *service) loadGrants(ctx context.Context, username string, claims *jwtx.Claims) (*domain.Account, scope.Grants, error) {
	if claims == nil || claims.Subject != username {
		return nil, scope.Grants{}, ErrWrongSubject
	}

	account, err := s.accounts.Get(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, scope.Grants{}, ErrNotFound
		}
		return nil, scope.Grants{}, err
	}

	granted, err := scope.ParseList(claims.Scope)
	if err != nil {
		return nil, scope.Grants{}, ErrForbiddenAttribute
	}

	client, err := s.clients.Get(ctx, claims.Audience)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, scope.Grants{}, ErrNotFound
		}
		return nil, scope.Grants{}, err
	}

	var owned []domain.ClientScope
	for _, ps := range granted {
		if ps.ClientID != claims.Audience {
			continue
		}
		if cs := client.Scope(ps.Scope); cs != nil {
			owned = append(owned, *cs)
		}
	}
	return account, scope.GrantsFor(owned), nil
}
