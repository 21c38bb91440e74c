// Package pg implementa los stores de cuentas y clientes sobre Postgres.
// Los documentos se guardan como JSONB, una fila por clave.
package pg

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oliverbravery/OpenAuth/internal/domain"
	"github.com/oliverbravery/OpenAuth/internal/observability/logger"
	"github.com/oliverbravery/OpenAuth/internal/store"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS accounts (
	username   TEXT PRIMARY KEY,
	doc        JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS clients (
	client_id  TEXT PRIMARY KEY,
	doc        JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Store agrupa el pool y expone los stores de documentos.
type Store struct{ pool *pgxpool.Pool }

type Options struct {
	MaxConns        int
	MinConns        int
	ConnMaxLifetime string
}

func New(ctx context.Context, dsn string, opts Options) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	if opts.MaxConns > 0 {
		pcfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		pcfg.MinConns = int32(opts.MinConns)
	}
	if opts.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(opts.ConnMaxLifetime); err == nil {
			pcfg.MaxConnLifetime = d
		}
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 8
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	// Ping no bloqueante: el servicio puede arrancar con la DB caída.
	if err := pool.Ping(ctx); err != nil {
		logger.L().Warn("pg pool startup ping failed", logger.Err(err))
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		logger.L().Warn("pg schema bootstrap failed", logger.Err(err))
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Accounts devuelve el AccountStore respaldado por este pool.
func (s *Store) Accounts() store.AccountStore { return &accountStore{pool: s.pool} }

// Clients devuelve el ClientStore respaldado por este pool.
func (s *Store) Clients() store.ClientStore { return &clientStore{pool: s.pool} }

type accountStore struct{ pool *pgxpool.Pool }

func (s *accountStore) Get(ctx context.Context, username string) (*domain.Account, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM accounts WHERE username=$1`, username).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var a domain.Account
	if err := json.Unmarshal(doc, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *accountStore) Put(ctx context.Context, a *domain.Account) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO accounts (username, doc) VALUES ($1, $2)`, a.Username, doc)
	if isUniqueViolation(err) {
		return store.ErrDuplicate
	}
	return err
}

func (s *accountStore) Update(ctx context.Context, a *domain.Account) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return err
	}
	ct, err := s.pool.Exec(ctx,
		`UPDATE accounts SET doc=$2, updated_at=now() WHERE username=$1`, a.Username, doc)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *accountStore) Delete(ctx context.Context, username string) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE username=$1`, username)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

type clientStore struct{ pool *pgxpool.Pool }

func (s *clientStore) Get(ctx context.Context, clientID string) (*domain.Client, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM clients WHERE client_id=$1`, clientID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var c domain.Client
	if err := json.Unmarshal(doc, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *clientStore) Put(ctx context.Context, c *domain.Client) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO clients (client_id, doc) VALUES ($1, $2)
		ON CONFLICT (client_id) DO UPDATE SET doc=EXCLUDED.doc, updated_at=now()`,
		c.ClientID, doc)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
