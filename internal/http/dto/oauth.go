// Package dto define los payloads de entrada/salida de los endpoints.
package dto

// AuthorizeRequest son los parámetros de GET /authorize.
type AuthorizeRequest struct {
	ClientID      string `json:"client_id"`
	ClientSecret  string `json:"client_secret"`
	ResponseType  string `json:"response_type"`
	State         string `json:"state"`
	CodeChallenge string `json:"code_challenge"`
	Scope         string `json:"scope"`
}

// LoginRequest es el POST /login: credenciales + captcha + los parámetros de
// authorize re-enviados verbatim por el form.
type LoginRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	CaptchaResponse string `json:"captcha_response"`

	AuthorizeRequest
}

// LoginResponse lleva la vista de consentimiento y el state token que liga el
// login con el consent posterior.
type LoginResponse struct {
	StateToken string `json:"state_token"`
	Consent    any    `json:"consent"`
}

// ConsentRequest es el POST /consent: la decisión del usuario más los
// parámetros originales ecoados por el form.
type ConsentRequest struct {
	Accept     bool   `json:"accept"`
	StateToken string `json:"state_token"`

	AuthorizeRequest
}

// TokenRequest cubre ambos grants de POST /token (form-encoded).
type TokenRequest struct {
	GrantType    string `json:"grant_type"`
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse es la respuesta estándar de POST /token.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}
