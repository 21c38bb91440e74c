// Package drivers registra los openers concretos del store.
// Importar blank desde cmd para activar los backends:
//
//	_ "github.com/oliverbravery/OpenAuth/internal/store/drivers"
package drivers

import (
	"context"
	"fmt"

	"github.com/oliverbravery/OpenAuth/internal/store"
	"github.com/oliverbravery/OpenAuth/internal/store/memory"
	"github.com/oliverbravery/OpenAuth/internal/store/pg"
	redisstore "github.com/oliverbravery/OpenAuth/internal/store/redis"
)

func init() {
	store.RegisterOpener("memory", openMemory)
	store.RegisterOpener("postgres", openPostgres)
}

func openMemory(ctx context.Context, cfg store.Config) (store.Stores, func() error, error) {
	authz, cleanup, err := openAuthz(cfg)
	if err != nil {
		return store.Stores{}, nil, err
	}
	return store.Stores{
		Accounts:       memory.NewAccountStore(),
		Clients:        memory.NewClientStore(),
		Authorizations: authz,
	}, cleanup, nil
}

func openPostgres(ctx context.Context, cfg store.Config) (store.Stores, func() error, error) {
	pgStore, err := pg.New(ctx, cfg.DSN, pg.Options{
		MaxConns:        cfg.Postgres.MaxConns,
		MinConns:        cfg.Postgres.MinConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return store.Stores{}, nil, err
	}
	authz, authzCleanup, err := openAuthz(cfg)
	if err != nil {
		pgStore.Close()
		return store.Stores{}, nil, err
	}
	cleanup := func() error {
		pgStore.Close()
		return authzCleanup()
	}
	return store.Stores{
		Accounts:       pgStore.Accounts(),
		Clients:        pgStore.Clients(),
		Authorizations: authz,
	}, cleanup, nil
}

func openAuthz(cfg store.Config) (store.AuthorizationStore, func() error, error) {
	switch cfg.AuthzKind {
	case "redis":
		s := redisstore.NewAuthorizationStore(cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.Prefix, cfg.AuthzTTL)
		return s, s.Close, nil
	case "memory", "":
		return memory.NewAuthorizationStore(cfg.AuthzTTL), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("store: unknown authz kind %q", cfg.AuthzKind)
	}
}
