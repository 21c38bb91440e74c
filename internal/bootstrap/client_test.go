package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oliverbravery/OpenAuth/internal/domain"
	"github.com/oliverbravery/OpenAuth/internal/security/password"
	"github.com/oliverbravery/OpenAuth/internal/store/memory"
)

const modelJSON = `{
  "name": "Seeded App",
  "description": "cliente de arranque",
  "redirect_uri": "https://app.example.com/cb",
  "scopes": [
    {
      "name": "profile:read",
      "description": "read profile",
      "account_attributes": [{"name": "email", "access_type": "read"}]
    }
  ],
  "profile_metadata_attributes": [
    {"name": "theme", "description": "tema", "type": "string"}
  ],
  "profile_defaults": {"theme": "dark"}
}`

func writeModel(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "client.json")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestSeedDefaultClient(t *testing.T) {
	ctx := context.Background()
	clients := memory.NewClientStore()

	err := SeedDefaultClient(ctx, ClientConfig{
		Clients:      clients,
		ModelPath:    writeModel(t, modelJSON),
		ClientID:     "seed-1",
		ClientSecret: "s3cret",
	})
	require.NoError(t, err)

	got, err := clients.Get(ctx, "seed-1")
	require.NoError(t, err)
	assert.Equal(t, "Seeded App", got.Name)
	assert.True(t, password.Verify("s3cret", got.ClientSecretHash))
	require.NotNil(t, got.Scope("profile:read"))
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	clients := memory.NewClientStore()
	require.NoError(t, clients.Put(ctx, &domain.Client{ClientID: "seed-1", Name: "ya existe"}))

	err := SeedDefaultClient(ctx, ClientConfig{
		Clients:      clients,
		ModelPath:    writeModel(t, modelJSON),
		ClientID:     "seed-1",
		ClientSecret: "s3cret",
	})
	require.NoError(t, err)

	got, err := clients.Get(ctx, "seed-1")
	require.NoError(t, err)
	assert.Equal(t, "ya existe", got.Name)
}

func TestSeedSkipsWithoutModelPath(t *testing.T) {
	assert.NoError(t, SeedDefaultClient(context.Background(), ClientConfig{}))
}

func TestSeedRequiresCredentials(t *testing.T) {
	err := SeedDefaultClient(context.Background(), ClientConfig{
		Clients:   memory.NewClientStore(),
		ModelPath: "whatever.json",
	})
	assert.Error(t, err)
}

func TestSeedRejectsInvalidModel(t *testing.T) {
	// Scope con nombre inválido (contiene "."): el arranque debe abortar.
	bad := `{
  "name": "Bad App",
  "redirect_uri": "https://x/cb",
  "scopes": [{"name": "mal.formado", "description": "x"}]
}`
	err := SeedDefaultClient(context.Background(), ClientConfig{
		Clients:      memory.NewClientStore(),
		ModelPath:    writeModel(t, bad),
		ClientID:     "seed-1",
		ClientSecret: "s3cret",
	})
	assert.Error(t, err)
}
