// Package scope implementa el modelo de scopes: el codec de ProfileScopes
// ("client_id.scope", separados por espacio), la resolución de scopes pedidos
// contra lo que cada cliente declara, la validación del schema de un cliente y
// la derivación del allow-list de atributos.
package scope

import (
	"errors"
	"regexp"
	"strings"

	"github.com/oliverbravery/OpenAuth/internal/domain"
)

// Scope name rules:
// - Lowercase only.
// - Start and end with [a-z0-9].
// - Middle chars may include [a-z0-9:_.-]... except "." which is reserved as
//   the client_id/scope separator in the serialized form.
// - Length 1..64.
var scopeNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_-]{0,62}[a-z0-9])?$`)

// ValidName returns true if the scope name matches the allowed pattern.
func ValidName(name string) bool {
	return scopeNameRe.MatchString(name)
}

// ErrMalformedScope: un scope serializado no tiene la forma client_id.scope.
var ErrMalformedScope = errors.New("scope: malformed scope string")

// Format serializa un ProfileScope como "client_id.scope".
func Format(s domain.ProfileScope) string {
	return s.ClientID + "." + s.Scope
}

// Parse convierte "client_id.scope" en un ProfileScope.
// El nombre del scope puede contener ":" pero no "."; el primer punto separa.
func Parse(s string) (domain.ProfileScope, error) {
	id, name, ok := strings.Cut(s, ".")
	if !ok || id == "" || name == "" || strings.Contains(name, ".") {
		return domain.ProfileScope{}, ErrMalformedScope
	}
	return domain.ProfileScope{ClientID: id, Scope: name}, nil
}

// ParseList convierte la forma de transporte (separada por espacios) en la
// lista de ProfileScopes. Una lista vacía es válida y devuelve nil.
func ParseList(spaceSeparated string) ([]domain.ProfileScope, error) {
	fields := strings.Fields(spaceSeparated)
	if len(fields) == 0 {
		return nil, nil
	}
	out := make([]domain.ProfileScope, 0, len(fields))
	for _, f := range fields {
		ps, err := Parse(f)
		if err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, nil
}

// Join serializa una lista de ProfileScopes separada por espacios.
func Join(scopes []domain.ProfileScope) string {
	parts := make([]string, len(scopes))
	for i, s := range scopes {
		parts[i] = Format(s)
	}
	return strings.Join(parts, " ")
}
