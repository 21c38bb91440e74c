package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oliverbravery/OpenAuth/internal/domain"
	"github.com/oliverbravery/OpenAuth/internal/store"
)

func TestAccountStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewAccountStore()

	_, err := s.Get(ctx, "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)

	acc := &domain.Account{Username: "alice", DisplayName: "Alice", Email: "alice@example.com"}
	require.NoError(t, s.Put(ctx, acc))
	assert.ErrorIs(t, s.Put(ctx, acc), store.ErrDuplicate)

	got, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.DisplayName)

	got.DisplayName = "Alicia"
	require.NoError(t, s.Update(ctx, got))
	got2, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alicia", got2.DisplayName)

	assert.ErrorIs(t, s.Update(ctx, &domain.Account{Username: "bob"}), store.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "alice"))
	assert.ErrorIs(t, s.Delete(ctx, "alice"), store.ErrNotFound)
}

func TestAccountStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewAccountStore()

	acc := &domain.Account{Username: "alice", DisplayName: "Alice"}
	require.NoError(t, s.Put(ctx, acc))

	// Mutar lo que devolvió Get no debe afectar lo almacenado.
	got, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	got.DisplayName = "mutada"

	again, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.DisplayName)

	// Igual con lo que se pasó a Put.
	acc.DisplayName = "mutada-afuera"
	final, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", final.DisplayName)
}

func TestClientStorePutIsUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewClientStore()

	_, err := s.Get(ctx, "app1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Put(ctx, &domain.Client{ClientID: "app1", Name: "App"}))
	require.NoError(t, s.Put(ctx, &domain.Client{ClientID: "app1", Name: "App v2"}))

	got, err := s.Get(ctx, "app1")
	require.NoError(t, err)
	assert.Equal(t, "App v2", got.Name)
}

func TestAuthorizationStoreUpsertAndTTL(t *testing.T) {
	ctx := context.Background()
	s := NewAuthorizationStore(50 * time.Millisecond)

	_, err := s.Get(ctx, "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)

	authz := &domain.Authorization{Username: "alice", AuthCode: "code-1"}
	require.NoError(t, s.Upsert(ctx, authz))

	got, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "code-1", got.AuthCode)

	// Upsert pisa el registro completo (last-write-wins).
	require.NoError(t, s.Upsert(ctx, &domain.Authorization{Username: "alice", AuthCode: "code-2"}))
	got, err = s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "code-2", got.AuthCode)

	time.Sleep(80 * time.Millisecond)
	_, err = s.Get(ctx, "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
