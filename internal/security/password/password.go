// Package password implementa hashing one-way con salt por valor para
// passwords y client secrets. bcrypt genera un salt nuevo en cada llamada, así
// que dos hashes del mismo input nunca son iguales; la verificación es
// constant-time dentro de bcrypt.
package password

import (
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hash devuelve el hash bcrypt del plaintext, envuelto en base64 urlsafe para
// poder guardarlo en cualquier store como string plano.
func Hash(plain string) (string, error) {
	if plain == "" {
		return "", fmt.Errorf("empty plaintext")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Verify compara el plaintext contra un hash urlsafe producido por Hash.
func Verify(plain, urlsafeHash string) bool {
	raw, err := base64.URLEncoding.DecodeString(urlsafeHash)
	if err != nil {
		return false
	}
	return bcrypt.CompareHashAndPassword(raw, []byte(plain)) == nil
}
