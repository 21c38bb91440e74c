// Package bootstrap siembra el cliente por defecto al arrancar el servicio.
package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/oliverbravery/OpenAuth/internal/domain"
	"github.com/oliverbravery/OpenAuth/internal/observability/logger"
	"github.com/oliverbravery/OpenAuth/internal/scope"
	"github.com/oliverbravery/OpenAuth/internal/security/password"
	"github.com/oliverbravery/OpenAuth/internal/store"
)

// ClientConfig controla el seeding. Las credenciales llegan por env para no
// persistir secretos en el modelo JSON versionado.
type ClientConfig struct {
	Clients store.ClientStore

	// ModelPath apunta al JSON con el modelo del cliente (scopes, schema,
	// defaults). Vacío deshabilita el seeding.
	ModelPath    string
	ClientID     string
	ClientSecret string
}

// clientModel es el documento JSON del modelo (sin credenciales).
type clientModel struct {
	Name                      string                     `json:"name"`
	Description               string                     `json:"description"`
	RedirectURI               string                     `json:"redirect_uri"`
	Scopes                    []domain.ClientScope       `json:"scopes"`
	ProfileMetadataAttributes []domain.MetadataAttribute `json:"profile_metadata_attributes"`
	ProfileDefaults           map[string]any             `json:"profile_defaults"`
	SharedReadAttributes      []string                   `json:"shared_read_attributes"`
}

// SeedDefaultClient registra el cliente por defecto si aún no existe.
// Idempotente: un cliente ya presente se deja intacto.
func SeedDefaultClient(ctx context.Context, cfg ClientConfig) error {
	if cfg.ModelPath == "" {
		return nil
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return fmt.Errorf("bootstrap: client model configured but BOOTSTRAP_CLIENT_ID/BOOTSTRAP_CLIENT_SECRET missing")
	}

	if _, err := cfg.Clients.Get(ctx, cfg.ClientID); err == nil {
		logger.L().Info("bootstrap client already present", logger.ClientID(cfg.ClientID))
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	b, err := os.ReadFile(cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("bootstrap: read client model: %w", err)
	}
	var model clientModel
	if err := json.Unmarshal(b, &model); err != nil {
		return fmt.Errorf("bootstrap: parse client model: %w", err)
	}

	secretHash, err := password.Hash(cfg.ClientSecret)
	if err != nil {
		return err
	}
	client := &domain.Client{
		ClientID:                  cfg.ClientID,
		ClientSecretHash:          secretHash,
		Name:                      model.Name,
		Description:               model.Description,
		RedirectURI:               model.RedirectURI,
		Scopes:                    model.Scopes,
		ProfileMetadataAttributes: model.ProfileMetadataAttributes,
		ProfileDefaults:           model.ProfileDefaults,
		SharedReadAttributes:      model.SharedReadAttributes,
	}

	// El schema se valida acá con las mismas reglas que en registro: un
	// modelo inválido aborta el arranque en vez de fallar en runtime.
	if err := scope.ValidateClient(client); err != nil {
		return fmt.Errorf("bootstrap: invalid client model: %w", err)
	}

	if err := cfg.Clients.Put(ctx, client); err != nil {
		return fmt.Errorf("bootstrap: persist client: %w", err)
	}
	logger.L().Info("bootstrap client seeded",
		logger.ClientID(cfg.ClientID),
		logger.String("name", model.Name),
	)
	return nil
}
