// Package redis implementa el AuthorizationStore sobre Redis, para despliegues
// con más de una instancia del servicio.
package redis

import (
	"context"
	"encoding/json"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/oliverbravery/OpenAuth/internal/domain"
	"github.com/oliverbravery/OpenAuth/internal/store"
)

// AuthorizationStore guarda un registro JSON por username bajo prefix+username.
type AuthorizationStore struct {
	c      *rdb.Client
	prefix string
	ttl    time.Duration
}

func NewAuthorizationStore(addr string, db int, prefix string, ttl time.Duration) *AuthorizationStore {
	if prefix == "" {
		prefix = "authz:"
	}
	return &AuthorizationStore{
		c:      rdb.NewClient(&rdb.Options{Addr: addr, DB: db}),
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *AuthorizationStore) Get(ctx context.Context, username string) (*domain.Authorization, error) {
	b, err := s.c.Get(ctx, s.prefix+username).Bytes()
	if err == rdb.Nil {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var authz domain.Authorization
	if err := json.Unmarshal(b, &authz); err != nil {
		return nil, err
	}
	return &authz, nil
}

func (s *AuthorizationStore) Upsert(ctx context.Context, authz *domain.Authorization) error {
	b, err := json.Marshal(authz)
	if err != nil {
		return err
	}
	// SET pisa el registro previo: semántica single-slot por username.
	return s.c.Set(ctx, s.prefix+authz.Username, b, s.ttl).Err()
}

// Ping verifica la conexión (para readyz).
func (s *AuthorizationStore) Ping(ctx context.Context) error {
	return s.c.Ping(ctx).Err()
}

// Close cierra el cliente subyacente.
func (s *AuthorizationStore) Close() error { return s.c.Close() }
