// Package memory implementa los stores en memoria (desarrollo y tests).
package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/oliverbravery/OpenAuth/internal/domain"
	"github.com/oliverbravery/OpenAuth/internal/store"
)

// AccountStore es un AccountStore respaldado por un map protegido con RWMutex.
// Los valores se copian en cada operación para evitar aliasing entre requests.
type AccountStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Account
}

func NewAccountStore() *AccountStore {
	return &AccountStore{data: map[string]*domain.Account{}}
}

func (s *AccountStore) Get(_ context.Context, username string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.data[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyOf(a)
}

func (s *AccountStore) Put(_ context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[a.Username]; ok {
		return store.ErrDuplicate
	}
	cp, err := copyOf(a)
	if err != nil {
		return err
	}
	s.data[a.Username] = cp
	return nil
}

func (s *AccountStore) Update(_ context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[a.Username]; !ok {
		return store.ErrNotFound
	}
	cp, err := copyOf(a)
	if err != nil {
		return err
	}
	s.data[a.Username] = cp
	return nil
}

func (s *AccountStore) Delete(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[username]; !ok {
		return store.ErrNotFound
	}
	delete(s.data, username)
	return nil
}

// ClientStore es un ClientStore en memoria.
type ClientStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Client
}

func NewClientStore() *ClientStore {
	return &ClientStore{data: map[string]*domain.Client{}}
}

func (s *ClientStore) Get(_ context.Context, clientID string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.data[clientID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyOf(c)
}

func (s *ClientStore) Put(_ context.Context, c *domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, err := copyOf(c)
	if err != nil {
		return err
	}
	s.data[c.ClientID] = cp
	return nil
}

// AuthorizationStore guarda los registros transitorios en go-cache con TTL.
// El TTL debe cubrir la vida del refresh token: un registro más viejo que el
// refresh TTL ya no puede validar nada y puede expirar solo.
type AuthorizationStore struct {
	c *gocache.Cache
}

func NewAuthorizationStore(ttl time.Duration) *AuthorizationStore {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &AuthorizationStore{c: gocache.New(ttl, 10*time.Minute)}
}

func (s *AuthorizationStore) Get(_ context.Context, username string) (*domain.Authorization, error) {
	v, ok := s.c.Get(username)
	if !ok {
		return nil, store.ErrNotFound
	}
	authz := v.(domain.Authorization)
	return &authz, nil
}

func (s *AuthorizationStore) Upsert(_ context.Context, authz *domain.Authorization) error {
	// Se guarda por valor: el caller no puede mutar el registro almacenado.
	s.c.SetDefault(authz.Username, *authz)
	return nil
}

// copyOf hace deep-copy vía JSON. Suficiente para documentos chicos.
func copyOf[T any](v *T) (*T, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}
