// Package token provee generación de tokens opacos y los hashes SHA-256 que
// se guardan para detección de reuso (los JWT exceden el límite de input de
// bcrypt; un digest de largo fijo es el formato correcto para comparar).
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// GenerateOpaque genera un token opaco aleatorio (base64url sin padding).
func GenerateOpaque(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SHA256Base64URL devuelve sha256(input) en base64url sin padding.
// Es el formato del code_challenge PKCE (método S256) y de los hashes de
// tokens guardados en el registro de autorización.
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Equal compara dos strings en tiempo constante.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// RevocationSentinel devuelve el hash de un valor aleatorio fresco. Sirve para
// pisar el hash guardado de una familia de refresh tokens: ningún token futuro
// puede volver a coincidir.
func RevocationSentinel() (string, error) {
	s, err := GenerateOpaque(32)
	if err != nil {
		return "", err
	}
	return SHA256Base64URL("revoked:" + s), nil
}
