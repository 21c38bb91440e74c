package jwt

import (
	"encoding/base64"
	"math/big"
)

// JWK es la clave pública RSA en formato JSON Web Key (sólo la pública).
type JWK struct {
	Kty string `json:"kty"` // "RSA"
	N   string `json:"n"`   // módulo, base64url sin padding, big-endian
	E   string `json:"e"`   // exponente, base64url sin padding, big-endian
	Alg string `json:"alg"` // "RS256"
	Use string `json:"use"` // "sig"
}

// JWKS es el documento publicado en /.well-known/jwks.json.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK deriva el módulo y exponente de la clave pública del manager.
func (m *Manager) JWK() JWK {
	return JWK{
		Kty: "RSA",
		N:   base64.RawURLEncoding.EncodeToString(m.pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(m.pub.E)).Bytes()),
		Alg: "RS256",
		Use: "sig",
	}
}

// JWKS devuelve el documento completo (una sola clave activa).
func (m *Manager) JWKS() JWKS {
	return JWKS{Keys: []JWK{m.JWK()}}
}
