// Package router arma el árbol de rutas del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	accountctrl "github.com/oliverbravery/OpenAuth/internal/http/controllers/account"
	oauthctrl "github.com/oliverbravery/OpenAuth/internal/http/controllers/oauth"
	mw "github.com/oliverbravery/OpenAuth/internal/http/middlewares"
	jwtx "github.com/oliverbravery/OpenAuth/internal/jwt"
	"github.com/oliverbravery/OpenAuth/internal/metrics"
)

// Deps contiene todo lo que el router necesita para armar el árbol.
type Deps struct {
	Authorize *oauthctrl.AuthorizeController
	Login     *oauthctrl.LoginController
	Consent   *oauthctrl.ConsentController
	Token     *oauthctrl.TokenController
	JWKS      *oauthctrl.JWKSController
	Account   *accountctrl.Controller

	Tokens *jwtx.Manager

	// MetricsHandler expone /metrics; nil lo deshabilita.
	MetricsHandler http.Handler
	// Ready reporta si los stores están accesibles (para /readyz).
	Ready func() bool
}

// New construye el router con el middleware chain estándar:
// recover → request id → metrics → logging.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	base := []mw.Middleware{
		mw.WithRecover(),
		mw.WithRequestID(),
		metrics.WithMetrics,
		mw.WithLogging(),
	}
	wrap := func(h http.HandlerFunc) http.Handler { return mw.ChainFunc(h, base...) }

	// Flujo de autorización
	r.Method(http.MethodGet, "/authorize", wrap(d.Authorize.Authorize))
	r.Method(http.MethodGet, "/login", wrap(d.Login.Describe))
	r.Method(http.MethodPost, "/login", wrap(d.Login.Login))
	r.Method(http.MethodPost, "/consent", wrap(d.Consent.Consent))
	r.Method(http.MethodPost, "/token", wrap(d.Token.Token))
	r.Method(http.MethodGet, "/.well-known/jwks.json", wrap(d.JWKS.JWKS))

	// Cuentas
	r.Method(http.MethodPost, "/account/register", wrap(d.Account.Register))

	authed := append(append([]mw.Middleware{}, base...), mw.RequireAccessToken(d.Tokens))
	r.Method(http.MethodGet, "/account/{username}",
		mw.ChainFunc(d.Account.ReadAttributes, authed...))
	r.Method(http.MethodPatch, "/account/{username}",
		mw.ChainFunc(d.Account.UpdateAttributes, authed...))

	// Operacional
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if d.Ready != nil && !d.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	return r
}
