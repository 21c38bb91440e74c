package store

import (
	"context"
	"fmt"
	"time"
)

// Config selecciona los backends. Driver cubre cuentas/clientes; AuthzKind el
// registro transitorio de autorización.
type Config struct {
	Driver string // "memory" | "postgres"
	DSN    string
	Postgres struct {
		MaxConns        int
		MinConns        int
		ConnMaxLifetime string
	}

	AuthzKind string // "memory" | "redis"
	Redis     struct {
		Addr   string
		DB     int
		Prefix string
	}
	// AuthzTTL acota la vida del registro de autorización. Debe cubrir al
	// menos el refresh TTL.
	AuthzTTL time.Duration
}

// Opener abre los stores según configuración. La implementación concreta se
// registra desde los subpaquetes para no acoplar este paquete a los drivers.
type Opener func(ctx context.Context, cfg Config) (Stores, func() error, error)

var openers = map[string]Opener{}

// RegisterOpener registra un opener para un driver (llamado desde init()).
func RegisterOpener(driver string, o Opener) { openers[driver] = o }

// Open construye los stores para el driver configurado. Devuelve además un
// cleanup para cerrar conexiones.
func Open(ctx context.Context, cfg Config) (Stores, func() error, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "memory"
	}
	o, ok := openers[driver]
	if !ok {
		return Stores{}, nil, fmt.Errorf("store: unknown driver %q", driver)
	}
	return o(ctx, cfg)
}
