// Package secretbox cifra y descifra valores opacos con AES-256-GCM.
// Se usa para envolver el authorization code ("username:random") de forma que
// el code sea opaco y tamper-evident sin lookup en base de datos.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	nonceSizeGCM      = 12 // nonce recomendado para GCM (96 bits)
	requiredKeyLength = 32 // 32 bytes => AES-256
)

// Box es un cifrador simétrico autenticado con una clave fija de 32 bytes.
type Box struct {
	aead cipher.AEAD
}

// New crea un Box desde la clave maestra en base64 (estándar o raw).
// Generar una con: openssl rand -base64 32
func New(keyB64 string) (*Box, error) {
	keyB64 = strings.TrimSpace(keyB64)
	if keyB64 == "" {
		return nil, errors.New("secretbox: empty master key")
	}
	k, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		if k, err = base64.RawStdEncoding.DecodeString(keyB64); err != nil {
			return nil, fmt.Errorf("secretbox: decode master key: %w", err)
		}
	}
	return NewFromBytes(k)
}

// NewFromBytes crea un Box desde la clave cruda de 32 bytes.
func NewFromBytes(key []byte) (*Box, error) {
	if len(key) != requiredKeyLength {
		return nil, fmt.Errorf("secretbox: key must be %d bytes, got %d", requiredKeyLength, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secretbox: aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secretbox: cipher.NewGCM: %w", err)
	}
	return &Box{aead: aead}, nil
}

// Encrypt cifra plainText y devuelve base64url(nonce||ciphertext) sin padding,
// apto para ir en un query param.
func (b *Box) Encrypt(plainText string) (string, error) {
	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secretbox: nonce random: %w", err)
	}
	ct := b.aead.Seal(nonce, nonce, []byte(plainText), nil)
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

// Decrypt recibe base64url(nonce||ciphertext) y devuelve el texto plano.
// Falla ante cualquier alteración (GCM autentica el ciphertext completo).
func (b *Box) Decrypt(cipherText string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cipherText)
	if err != nil {
		return "", fmt.Errorf("secretbox: decode: %w", err)
	}
	if len(raw) < nonceSizeGCM {
		return "", errors.New("secretbox: ciphertext too short")
	}
	nonce, ct := raw[:nonceSizeGCM], raw[nonceSizeGCM:]
	pt, err := b.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("secretbox: gcm auth/decrypt: %w", err)
	}
	return string(pt), nil
}
