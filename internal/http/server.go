// Package http arma el servidor HTTP del servicio.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/oliverbravery/OpenAuth/internal/observability/logger"
)

// Server envuelve http.Server con timeouts sanos y shutdown ordenado.
type Server struct {
	srv *http.Server
}

func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// ListenAndServe bloquea hasta que el server cierra.
func (s *Server) ListenAndServe() error {
	logger.L().Info("http server listening", logger.String("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

// Shutdown drena conexiones en curso hasta que el contexto expire.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.L().Info("http server shutting down")
	return s.srv.Shutdown(ctx)
}
