package domain

// AccessType define qué puede hacer un scope con un atributo.
type AccessType string

const (
	AccessRead      AccessType = "read"
	AccessWrite     AccessType = "write"
	AccessReadWrite AccessType = "read_write"
)

// CanRead reporta si el access type permite lectura.
func (a AccessType) CanRead() bool { return a == AccessRead || a == AccessReadWrite }

// CanWrite reporta si el access type permite escritura.
func (a AccessType) CanWrite() bool { return a == AccessWrite || a == AccessReadWrite }

// Merge combina dos access types (read + write => read_write).
func (a AccessType) Merge(b AccessType) AccessType {
	if a == b || b == "" {
		return a
	}
	if a == "" {
		return b
	}
	return AccessReadWrite
}

// ScopeAttribute asocia un atributo con el acceso que el scope otorga sobre él.
type ScopeAttribute struct {
	Name   string     `json:"name"`
	Access AccessType `json:"access_type"`
}

// ClientScope es un permiso que un cliente declara y que un usuario puede
// conceder. ClientAttributes apuntan a entradas del schema de metadata del
// propio cliente; AccountAttributes apuntan a campos de la cuenta.
type ClientScope struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	// Shareable: otros clientes pueden pedir una referencia a este scope.
	Shareable bool `json:"shareable"`
	// DeveloperOnly: excluido del camino de consentimiento de usuario final.
	DeveloperOnly bool `json:"developer_only"`
	// IsPersonal: si es false, otras cuentas vinculadas al cliente pueden
	// recibir visibilidad de los atributos del scope.
	IsPersonal bool `json:"is_personal_scope"`

	ClientAttributes  []ScopeAttribute `json:"client_attributes"`
	AccountAttributes []ScopeAttribute `json:"account_attributes"`
}

// MetadataType define los tipos posibles de un atributo de metadata.
type MetadataType string

const (
	MetadataString       MetadataType = "string"
	MetadataInteger      MetadataType = "integer"
	MetadataFloat        MetadataType = "float"
	MetadataBoolean      MetadataType = "boolean"
	MetadataDatetime     MetadataType = "datetime"
	MetadataUnstructured MetadataType = "unstructured"
)

// MetadataAttribute es una entrada del schema de metadata de un cliente.
type MetadataAttribute struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Type        MetadataType `json:"type"`
}

// ClientDeveloper asocia un username con los scopes developer-only que tiene
// concedidos para el cliente.
type ClientDeveloper struct {
	Username string   `json:"username"`
	Scopes   []string `json:"scopes"`
}

// Client representa una aplicación registrada. El secret nunca se persiste en
// claro: sólo su hash.
type Client struct {
	ClientID         string `json:"client_id"`
	ClientSecretHash string `json:"client_secret_hash"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	RedirectURI      string `json:"redirect_uri"`

	Developers []ClientDeveloper `json:"developers"`
	Scopes     []ClientScope     `json:"scopes"`

	ProfileMetadataAttributes []MetadataAttribute `json:"profile_metadata_attributes"`
	ProfileDefaults           map[string]any      `json:"profile_defaults"`

	// SharedReadAttributes: atributos de cuenta (no de perfil) legibles por
	// clientes vinculados.
	SharedReadAttributes []string `json:"shared_read_attributes"`
}

// Scope devuelve el ClientScope con el nombre dado, o nil.
func (c *Client) Scope(name string) *ClientScope {
	for i := range c.Scopes {
		if c.Scopes[i].Name == name {
			return &c.Scopes[i]
		}
	}
	return nil
}

// MetadataAttribute devuelve la entrada del schema con el nombre dado, o nil.
func (c *Client) MetadataAttribute(name string) *MetadataAttribute {
	for i := range c.ProfileMetadataAttributes {
		if c.ProfileMetadataAttributes[i].Name == name {
			return &c.ProfileMetadataAttributes[i]
		}
	}
	return nil
}

// ProfileDefault devuelve el default declarado para una clave del schema.
func (c *Client) ProfileDefault(key string) (any, bool) {
	v, ok := c.ProfileDefaults[key]
	return v, ok
}
