package jwt

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// LoadPrivateKeyPEM carga una clave privada RSA desde un archivo PEM
// (PKCS#1 o PKCS#8). La clave se carga una vez al startup y no sale del
// proceso.
func LoadPrivateKeyPEM(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jwt: read private key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("jwt: private key is not PEM")
	}
	if k, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return k, nil
	}
	any, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwt: parse private key: %w", err)
	}
	k, ok := any.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("jwt: private key is not RSA")
	}
	return k, nil
}

// LoadPublicKeyPEM carga una clave pública RSA desde un archivo PEM
// (PKIX o PKCS#1).
func LoadPublicKeyPEM(path string) (*rsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jwt: read public key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("jwt: public key is not PEM")
	}
	if any, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		if k, ok := any.(*rsa.PublicKey); ok {
			return k, nil
		}
		return nil, errors.New("jwt: public key is not RSA")
	}
	k, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwt: parse public key: %w", err)
	}
	return k, nil
}
