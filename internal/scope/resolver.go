package scope

import (
	"context"
	"errors"

	"github.com/oliverbravery/OpenAuth/internal/domain"
	"github.com/oliverbravery/OpenAuth/internal/store"
)

var (
	// ErrUnknownClient: un scope pedido referencia un cliente inexistente.
	ErrUnknownClient = errors.New("scope: unknown client")
	// ErrUnknownScope: el cliente existe pero no declara ese scope.
	ErrUnknownScope = errors.New("scope: scope not declared by client")
	// ErrDeveloperOnly: el scope es developer-only y no puede pedirse por el
	// camino de consentimiento de usuario final.
	ErrDeveloperOnly = errors.New("scope: developer-only scope not requestable")
)

// Resolver resuelve ProfileScopes pedidos contra los clientes que los
// declaran. La resolución es pura respecto del store: misma entrada y mismos
// clientes, mismo resultado.
type Resolver struct {
	Clients store.ClientStore
}

func NewResolver(clients store.ClientStore) *Resolver {
	return &Resolver{Clients: clients}
}

// Resolve agrupa los scopes pedidos por client_id, carga cada cliente y
// machea cada nombre contra sus ClientScopes declarados. Rechaza completo
// (nunca parcial) si algún scope no existe o es developer-only.
// El orden del resultado sigue el orden de la entrada.
func (r *Resolver) Resolve(ctx context.Context, requested []domain.ProfileScope) ([]domain.ClientScope, error) {
	if len(requested) == 0 {
		return nil, nil
	}

	clients := map[string]*domain.Client{}
	for _, ps := range requested {
		if _, ok := clients[ps.ClientID]; ok {
			continue
		}
		c, err := r.Clients.Get(ctx, ps.ClientID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrUnknownClient
			}
			return nil, err
		}
		clients[ps.ClientID] = c
	}

	out := make([]domain.ClientScope, 0, len(requested))
	for _, ps := range requested {
		cs := clients[ps.ClientID].Scope(ps.Scope)
		if cs == nil {
			return nil, ErrUnknownScope
		}
		if cs.DeveloperOnly {
			return nil, ErrDeveloperOnly
		}
		out = append(out, *cs)
	}
	return out, nil
}

// ResolveDeveloper es la variante para el camino developer: admite scopes
// developer-only pero sigue rechazando scopes inexistentes.
func (r *Resolver) ResolveDeveloper(ctx context.Context, requested []domain.ProfileScope) ([]domain.ClientScope, error) {
	if len(requested) == 0 {
		return nil, nil
	}
	out := make([]domain.ClientScope, 0, len(requested))
	for _, ps := range requested {
		c, err := r.Clients.Get(ctx, ps.ClientID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrUnknownClient
			}
			return nil, err
		}
		cs := c.Scope(ps.Scope)
		if cs == nil {
			return nil, ErrUnknownScope
		}
		out = append(out, *cs)
	}
	return out, nil
}
