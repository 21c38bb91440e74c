// Package jwt implementa el Token Manager: emisión y verificación de JWT
// firmados RS256 con un par de claves asimétrico, y la derivación del JWKS.
package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Kind distingue los tipos de token emitidos.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	// KindState liga una aserción de continuidad login→consent a sub y scope.
	KindState Kind = "state"
)

// DefaultIssuer es el iss por defecto de todos los tokens.
const DefaultIssuer = "auth-service"

var (
	ErrInvalidToken = errors.New("jwt: invalid token")
	ErrExpired      = errors.New("jwt: token expired")
	ErrNotYetValid  = errors.New("jwt: token not yet valid")
	ErrWrongKind    = errors.New("jwt: claim set does not match token kind")
)

// Claims es el claim set plano de todos los tokens. Scope sólo está presente
// en access y state tokens; token_use declara el tipo y se chequea por
// igualdad en Verify (un state token nunca pasa como access, ni al revés).
type Claims struct {
	Issuer    string
	Typ       string
	Subject   string
	Audience  string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Scope     string
	TokenUse  Kind
	hasScope  bool
}

// HasScope reporta si el claim "scope" estaba presente (aunque fuera vacío).
func (c *Claims) HasScope() bool { return c.hasScope }

// Manager firma con la clave privada y verifica con la pública.
type Manager struct {
	priv       *rsa.PrivateKey
	pub        *rsa.PublicKey
	iss        string
	accessTTL  time.Duration
	refreshTTL time.Duration
	stateTTL   time.Duration

	now func() time.Time // inyectable en tests
}

// NewManager construye el manager con TTLs independientes.
// Invariante de configuración: refreshTTL > accessTTL.
func NewManager(priv *rsa.PrivateKey, pub *rsa.PublicKey, accessTTL, refreshTTL time.Duration) (*Manager, error) {
	if priv == nil || pub == nil {
		return nil, errors.New("jwt: nil key")
	}
	if refreshTTL <= accessTTL {
		return nil, fmt.Errorf("jwt: refresh TTL (%s) must exceed access TTL (%s)", refreshTTL, accessTTL)
	}
	return &Manager{
		priv:       priv,
		pub:        pub,
		iss:        DefaultIssuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		stateTTL:   accessTTL,
		now:        time.Now,
	}, nil
}

// NewManagerFromFiles carga el par PEM y construye el manager.
func NewManagerFromFiles(privPath, pubPath string, accessTTL, refreshTTL time.Duration) (*Manager, error) {
	priv, err := LoadPrivateKeyPEM(privPath)
	if err != nil {
		return nil, err
	}
	pub, err := LoadPublicKeyPEM(pubPath)
	if err != nil {
		return nil, err
	}
	return NewManager(priv, pub, accessTTL, refreshTTL)
}

// WithIssuer reemplaza el issuer por defecto. Devuelve el mismo manager
// para encadenar en el wiring.
func (m *Manager) WithIssuer(iss string) *Manager {
	if iss != "" {
		m.iss = iss
	}
	return m
}

// WithStateTTL acota la vida de los state tokens (por defecto, el access TTL).
func (m *Manager) WithStateTTL(ttl time.Duration) *Manager {
	if ttl > 0 {
		m.stateTTL = ttl
	}
	return m
}

// WithClock reemplaza la fuente de tiempo. Solo para tests: sin un jti en los
// claims, dos tokens emitidos en el mismo segundo son idénticos.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// TTL devuelve el TTL configurado para un tipo de token.
func (m *Manager) TTL(kind Kind) time.Duration {
	switch kind {
	case KindRefresh:
		return m.refreshTTL
	case KindState:
		return m.stateTTL
	default:
		return m.accessTTL
	}
}

// Issue emite un token firmado del tipo dado. scope se ignora para refresh
// tokens (su shape no lo lleva); para access y state siempre se incluye,
// aunque sea vacío.
func (m *Manager) Issue(kind Kind, subject, audience, scope string) (string, time.Time, error) {
	now := m.now().UTC()
	exp := now.Add(m.TTL(kind))

	claims := jwtv5.MapClaims{
		"iss":       m.iss,
		"typ":       "JWT",
		"sub":       subject,
		"aud":       audience,
		"iat":       now.Unix(),
		"exp":       exp.Unix(),
		"token_use": string(kind),
	}
	if kind != KindRefresh {
		claims["scope"] = scope
	}

	signed, err := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims).SignedString(m.priv)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, exp, nil
}

// Verify chequea firma, ventana de validez (iat <= now < exp) y que el claim
// set tenga el shape del tipo esperado. Nunca devuelve claims parciales: ante
// cualquier falla estructural o criptográfica, rechaza.
func (m *Manager) Verify(signed string, kind Kind) (*Claims, error) {
	keyfunc := func(t *jwtv5.Token) (any, error) { return m.pub, nil }

	// La validación de exp/iat se hace a mano abajo para mantener la ventana
	// exacta en el borde (sin leeway).
	tok, err := jwtv5.ParseWithClaims(signed, jwtv5.MapClaims{}, keyfunc,
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithoutClaimsValidation(),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	claims, err := claimsFromMap(mc)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	if !now.Before(claims.ExpiresAt) {
		return nil, ErrExpired
	}
	if now.Before(claims.IssuedAt) {
		return nil, ErrNotYetValid
	}

	// El tipo se chequea por igualdad: access, refresh y state son
	// mutuamente excluyentes.
	if claims.TokenUse != kind {
		return nil, ErrWrongKind
	}
	// Shape check redundante con token_use: refresh no lleva scope.
	wantScope := kind != KindRefresh
	if claims.hasScope != wantScope {
		return nil, ErrWrongKind
	}
	return claims, nil
}

func claimsFromMap(mc jwtv5.MapClaims) (*Claims, error) {
	c := &Claims{}
	var ok bool
	if c.Issuer, ok = mc["iss"].(string); !ok || c.Issuer == "" {
		return nil, ErrInvalidToken
	}
	if c.Typ, ok = mc["typ"].(string); !ok || c.Typ != "JWT" {
		return nil, ErrInvalidToken
	}
	if c.Subject, ok = mc["sub"].(string); !ok || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	switch aud := mc["aud"].(type) {
	case string:
		c.Audience = aud
	case []any:
		// Tolerar aud como lista de un solo elemento.
		if len(aud) != 1 {
			return nil, ErrInvalidToken
		}
		if c.Audience, ok = aud[0].(string); !ok {
			return nil, ErrInvalidToken
		}
	default:
		return nil, ErrInvalidToken
	}
	if c.Audience == "" {
		return nil, ErrInvalidToken
	}

	use, ok := mc["token_use"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	switch Kind(use) {
	case KindAccess, KindRefresh, KindState:
		c.TokenUse = Kind(use)
	default:
		return nil, ErrInvalidToken
	}

	expf, ok := mc["exp"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}
	c.ExpiresAt = time.Unix(int64(expf), 0).UTC()

	iatf, ok := mc["iat"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}
	c.IssuedAt = time.Unix(int64(iatf), 0).UTC()

	if v, present := mc["scope"]; present {
		s, ok := v.(string)
		if !ok {
			return nil, ErrInvalidToken
		}
		c.Scope = s
		c.hasScope = true
	}
	return c, nil
}
