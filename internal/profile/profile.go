// Package profile arma la vista de consentimiento y aprovisiona perfiles
// por (cuenta, cliente) cuando el usuario acepta.
package profile

import (
	"context"
	"errors"

	"github.com/oliverbravery/OpenAuth/internal/domain"
	"github.com/oliverbravery/OpenAuth/internal/scope"
	"github.com/oliverbravery/OpenAuth/internal/store"
)

var (
	// ErrClientNotFound: el client_id no corresponde a un cliente registrado.
	ErrClientNotFound = errors.New("profile: client not found")
	// ErrAccountNotFound: el username no corresponde a una cuenta.
	ErrAccountNotFound = errors.New("profile: account not found")
)

// ConsentDetails es todo lo que la pantalla de consentimiento muestra:
// identidad del cliente, scopes pedidos con sus descripciones, si la cuenta ya
// tiene perfil con el cliente, y qué atributos quedan expuestos.
type ConsentDetails struct {
	ClientName        string                   `json:"client_name"`
	ClientDescription string                   `json:"client_description"`
	RedirectURI       string                   `json:"redirect_uri"`
	AccountConnected  bool                     `json:"account_connected"`
	RequestedScopes   []RequestedScope         `json:"requested_scopes"`
	MetadataSchema    []domain.MetadataAttribute `json:"metadata_schema"`
	SharedAttributes  []string                 `json:"shared_attributes"`
}

// RequestedScope es un scope pedido anotado con su descripción y los atributos
// que otorga, para el disclosure.
type RequestedScope struct {
	Scope             string                 `json:"scope"`
	Description       string                 `json:"description"`
	AccountAttributes []domain.ScopeAttribute `json:"account_attributes"`
	ClientAttributes  []domain.ScopeAttribute `json:"client_attributes"`
}

// Service construye vistas de consentimiento y materializa perfiles.
type Service interface {
	// ConsentView resuelve los scopes pedidos contra el cliente iniciador y
	// devuelve los detalles para la pantalla de consentimiento.
	ConsentView(ctx context.Context, clientID, username string, requested []domain.ProfileScope) (*ConsentDetails, error)
	// Provision crea o actualiza el perfil (cuenta, cliente) con los scopes
	// aceptados. Un perfil nuevo arranca con toda la metadata en defaults;
	// uno existente conserva su metadata y sólo reemplaza los scopes.
	Provision(ctx context.Context, clientID, username string, accepted []domain.ProfileScope) error
}

// Deps contiene las dependencias del servicio.
type Deps struct {
	Accounts store.AccountStore
	Clients  store.ClientStore
	Resolver *scope.Resolver
}

type service struct {
	accounts store.AccountStore
	clients  store.ClientStore
	resolver *scope.Resolver
}

func NewService(d Deps) Service {
	return &service{accounts: d.Accounts, clients: d.Clients, resolver: d.Resolver}
}

func (s *service) ConsentView(ctx context.Context, clientID, username string, requested []domain.ProfileScope) (*ConsentDetails, error) {
	client, err := s.clients.Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	resolved, err := s.resolver.Resolve(ctx, requested)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.Get(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	details := &ConsentDetails{
		ClientName:        client.Name,
		ClientDescription: client.Description,
		RedirectURI:       client.RedirectURI,
		AccountConnected:  account.Profile(clientID) != nil,
		MetadataSchema:    client.ProfileMetadataAttributes,
		SharedAttributes:  client.SharedReadAttributes,
	}
	for i, cs := range resolved {
		details.RequestedScopes = append(details.RequestedScopes, RequestedScope{
			Scope:             scope.Format(requested[i]),
			Description:       cs.Description,
			AccountAttributes: cs.AccountAttributes,
			ClientAttributes:  cs.ClientAttributes,
		})
	}
	return details, nil
}

func (s *service) Provision(ctx context.Context, clientID, username string, accepted []domain.ProfileScope) error {
	client, err := s.clients.Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrClientNotFound
		}
		return err
	}

	// los scopes aceptados se re-resuelven: el consentimiento nunca concede
	// algo que los clientes referenciados no declaren
	if _, err := s.resolver.Resolve(ctx, accepted); err != nil {
		return err
	}

	account, err := s.accounts.Get(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}

	if p := account.Profile(clientID); p != nil {
		// perfil existente: la metadata acumulada se conserva, los scopes se
		// reemplazan por el set recién consentido
		p.Scopes = accepted
	} else {
		account.Profiles = append(account.Profiles, domain.Profile{
			ClientID: clientID,
			Scopes:   accepted,
			Metadata: defaultMetadata(client),
		})
	}
	return s.accounts.Update(ctx, account)
}

// defaultMetadata materializa el schema completo del cliente: cada atributo
// declarado aparece en el perfil, con su default o null.
func defaultMetadata(c *domain.Client) map[string]any {
	md := make(map[string]any, len(c.ProfileMetadataAttributes))
	for _, attr := range c.ProfileMetadataAttributes {
		if v, ok := c.ProfileDefault(attr.Name); ok {
			md[attr.Name] = v
		} else {
			md[attr.Name] = nil
		}
	}
	return md
}
