package middlewares

import (
	"net/http"
	"strings"

	"github.com/oliverbravery/OpenAuth/internal/http/errors"
	jwtx "github.com/oliverbravery/OpenAuth/internal/jwt"
)

// RequireAccessToken valida Authorization: Bearer <JWT> como access token y
// guarda las claims en el contexto. Un refresh o state token acá es un 401.
func RequireAccessToken(mgr *jwtx.Manager) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := strings.TrimSpace(r.Header.Get("Authorization"))
			if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token", error_description="missing bearer token"`)
				errors.WriteError(w, errors.ErrTokenMissing)
				return
			}
			raw := strings.TrimSpace(ah[len("Bearer "):])

			claims, err := mgr.Verify(raw, jwtx.KindAccess)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="api", error="invalid_token"`)
				if err == jwtx.ErrExpired {
					errors.WriteError(w, errors.ErrTokenExpired)
					return
				}
				errors.WriteError(w, errors.ErrTokenInvalid.WithDetail(err.Error()))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
