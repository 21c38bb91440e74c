// Package domain contiene los modelos centrales del servicio de autorización:
// cuentas, perfiles por cliente, clientes registrados y el registro transitorio
// de autorización (un slot por usuario).
package domain

// AccountRole define el rol de una cuenta dentro del servicio.
type AccountRole string

const (
	AccountRoleStandard  AccountRole = "standard"
	AccountRoleDeveloper AccountRole = "developer"
)

// ProfileScope referencia un scope concedido: (client_id, nombre de scope).
// Es la unidad que se solicita, se consiente y se serializa dentro del claim
// "scope" de un access token (como "client_id.scope").
type ProfileScope struct {
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
}

// Profile es el registro por (cuenta, cliente): scopes concedidos más la
// metadata tipada que el cliente declara en su schema.
type Profile struct {
	ClientID string         `json:"client_id"`
	Scopes   []ProfileScope `json:"scopes"`
	Metadata map[string]any `json:"metadata"`
}

// Account representa una cuenta de usuario. Username es la clave única.
type Account struct {
	Username       string      `json:"username"`
	DisplayName    string      `json:"display_name"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"hashed_password"`
	Role           AccountRole `json:"account_role"`
	Profiles       []Profile   `json:"profiles"`
}

// Profile devuelve el perfil asociado al client_id, o nil si no existe.
// Invariante: a lo sumo un Profile por client_id dentro de una cuenta.
func (a *Account) Profile(clientID string) *Profile {
	for i := range a.Profiles {
		if a.Profiles[i].ClientID == clientID {
			return &a.Profiles[i]
		}
	}
	return nil
}

// Authorization es el estado transitorio de autorización de un usuario.
// Hay a lo sumo un registro vivo por username; un nuevo authorize lo pisa
// (last-write-wins, limitación documentada).
type Authorization struct {
	Username           string `json:"username"`
	CodeChallenge      string `json:"code_challenge,omitempty"`
	AuthCode           string `json:"auth_code,omitempty"`
	HashedRefreshToken string `json:"hashed_refresh_token,omitempty"`
	HashedAccessToken  string `json:"hashed_access_token,omitempty"`
	ConsentedScopes    string `json:"consented_scopes,omitempty"`
}
