package scope

import "github.com/oliverbravery/OpenAuth/internal/domain"

// Grants es el allow-list de atributos derivado de un conjunto de scopes:
// qué atributos de cuenta y qué atributos de metadata de perfil puede tocar
// el portador, y con qué acceso. Alimenta tanto el disclosure de consent como
// el control de acceso de los endpoints de cuenta.
type Grants struct {
	Account  map[string]domain.AccessType
	Metadata map[string]domain.AccessType
}

// GrantsFor acumula los atributos de los scopes dados, mergeando accesos
// (read + write => read_write).
func GrantsFor(scopes []domain.ClientScope) Grants {
	g := Grants{
		Account:  map[string]domain.AccessType{},
		Metadata: map[string]domain.AccessType{},
	}
	for _, cs := range scopes {
		for _, attr := range cs.AccountAttributes {
			g.Account[attr.Name] = g.Account[attr.Name].Merge(attr.Access)
		}
		for _, attr := range cs.ClientAttributes {
			g.Metadata[attr.Name] = g.Metadata[attr.Name].Merge(attr.Access)
		}
	}
	return g
}

// CanReadAccount reporta si el allow-list permite leer el atributo de cuenta.
func (g Grants) CanReadAccount(name string) bool { return g.Account[name].CanRead() }

// CanWriteAccount reporta si permite escribir el atributo de cuenta.
func (g Grants) CanWriteAccount(name string) bool { return g.Account[name].CanWrite() }

// CanReadMetadata reporta si permite leer el atributo de metadata.
func (g Grants) CanReadMetadata(name string) bool { return g.Metadata[name].CanRead() }

// CanWriteMetadata reporta si permite escribir el atributo de metadata.
func (g Grants) CanWriteMetadata(name string) bool { return g.Metadata[name].CanWrite() }

// AttributesFor lista, para un access type dado, los nombres de atributos que
// los scopes exponen con ese acceso (cuenta y metadata juntos). Se usa para
// armar el disclosure del consent.
func AttributesFor(scopes []domain.ClientScope, access domain.AccessType) map[string][]domain.AccessType {
	out := map[string][]domain.AccessType{}
	add := func(attr domain.ScopeAttribute) {
		match := (access == domain.AccessRead && attr.Access.CanRead()) ||
			(access == domain.AccessWrite && attr.Access.CanWrite()) ||
			access == domain.AccessReadWrite
		if match {
			out[attr.Name] = append(out[attr.Name], attr.Access)
		}
	}
	for _, cs := range scopes {
		for _, attr := range cs.AccountAttributes {
			add(attr)
		}
		for _, attr := range cs.ClientAttributes {
			add(attr)
		}
	}
	return out
}
