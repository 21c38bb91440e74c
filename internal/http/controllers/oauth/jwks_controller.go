package oauth

import (
	"net/http"

	"github.com/oliverbravery/OpenAuth/internal/http/helpers"
	jwtx "github.com/oliverbravery/OpenAuth/internal/jwt"
)

// JWKSController publica la clave pública para verificadores externos.
type JWKSController struct {
	manager *jwtx.Manager
}

func NewJWKSController(m *jwtx.Manager) *JWKSController {
	return &JWKSController{manager: m}
}

// JWKS maneja GET /.well-known/jwks.json. El documento es derivable de la
// clave pública, así que se permite cachear.
func (c *JWKSController) JWKS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	helpers.WriteJSON(w, http.StatusOK, c.manager.JWKS())
}
