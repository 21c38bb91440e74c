package domain

// Tabla estática de atributos de cuenta direccionables por scopes.
// Reemplaza el despacho dinámico por nombre: un atributo desconocido es un
// error de validación de schema, nunca un lookup fallido en runtime.

type accountAccessor struct {
	get      func(*Account) any
	set      func(*Account, string) bool
	writable bool
}

var accountAttributeTable = map[string]accountAccessor{
	"username": {
		get:      func(a *Account) any { return a.Username },
		writable: false,
	},
	"display_name": {
		get: func(a *Account) any { return a.DisplayName },
		set: func(a *Account, v string) bool {
			a.DisplayName = v
			return true
		},
		writable: true,
	},
	"email": {
		get: func(a *Account) any { return a.Email },
		set: func(a *Account, v string) bool {
			a.Email = v
			return true
		},
		writable: true,
	},
}

// KnownAccountAttribute reporta si el nombre es un atributo de cuenta válido.
func KnownAccountAttribute(name string) bool {
	_, ok := accountAttributeTable[name]
	return ok
}

// GetAccountAttribute lee un atributo de cuenta por nombre.
func GetAccountAttribute(a *Account, name string) (any, bool) {
	acc, ok := accountAttributeTable[name]
	if !ok {
		return nil, false
	}
	return acc.get(a), true
}

// SetAccountAttribute escribe un atributo de cuenta por nombre. Falla si el
// atributo no existe o no es escribible (ej: username es clave).
func SetAccountAttribute(a *Account, name, value string) bool {
	acc, ok := accountAttributeTable[name]
	if !ok || !acc.writable {
		return false
	}
	return acc.set(a, value)
}
