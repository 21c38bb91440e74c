package dto

// RegisterRequest es el POST /account/register.
type RegisterRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// AttributesResponse es la lectura filtrada por scopes de GET /account/{username}.
type AttributesResponse struct {
	Attributes map[string]any `json:"attributes"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// UpdateAttributesRequest es el PATCH /account/{username}.
type UpdateAttributesRequest struct {
	Attributes map[string]string `json:"attributes,omitempty"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
}
