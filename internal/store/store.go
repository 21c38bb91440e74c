// Package store define las interfaces de persistencia del servicio y una
// fábrica multi-backend (memory | postgres para documentos, memory | redis
// para el estado transitorio de autorización).
package store

import (
	"context"
	"errors"

	"github.com/oliverbravery/OpenAuth/internal/domain"
)

var (
	// ErrNotFound: la clave no existe en el store.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate: ya existe un registro con esa clave.
	ErrDuplicate = errors.New("store: duplicate key")
)

// AccountStore persiste cuentas, clave única: username.
type AccountStore interface {
	Get(ctx context.Context, username string) (*domain.Account, error)
	Put(ctx context.Context, a *domain.Account) error
	Update(ctx context.Context, a *domain.Account) error
	// Delete existe para rollback de escrituras parciales multi-store.
	Delete(ctx context.Context, username string) error
}

// ClientStore persiste clientes registrados, clave única: client_id.
type ClientStore interface {
	Get(ctx context.Context, clientID string) (*domain.Client, error)
	Put(ctx context.Context, c *domain.Client) error
}

// AuthorizationStore guarda el registro transitorio de autorización.
// Un slot por username; Upsert pisa cualquier registro previo.
type AuthorizationStore interface {
	Get(ctx context.Context, username string) (*domain.Authorization, error)
	Upsert(ctx context.Context, authz *domain.Authorization) error
}

// Stores agrupa los tres stores que consume el resto del servicio.
type Stores struct {
	Accounts       AccountStore
	Clients        ClientStore
	Authorizations AuthorizationStore
}
