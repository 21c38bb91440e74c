package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBox(t *testing.T) *Box {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	b, err := NewFromBytes(key)
	require.NoError(t, err)
	return b
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	b := newTestBox(t)

	ct, err := b.Encrypt("alice:xK9mP2vL")
	require.NoError(t, err)
	assert.NotContains(t, ct, "alice") // el code es opaco

	pt, err := b.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "alice:xK9mP2vL", pt)
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	b := newTestBox(t)

	ct1, err := b.Encrypt("same")
	require.NoError(t, err)
	ct2, err := b.Encrypt("same")
	require.NoError(t, err)
	assert.NotEqual(t, ct1, ct2)
}

func TestDecryptRejectsTampering(t *testing.T) {
	b := newTestBox(t)

	ct, err := b.Encrypt("alice:code")
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(ct)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0x01
	_, err = b.Decrypt(base64.RawURLEncoding.EncodeToString(raw))
	assert.Error(t, err)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	b := newTestBox(t)

	_, err := b.Decrypt("no-es-base64!!")
	assert.Error(t, err)
	_, err = b.Decrypt(base64.RawURLEncoding.EncodeToString([]byte("corto")))
	assert.Error(t, err)
}

func TestDecryptRejectsForeignKey(t *testing.T) {
	b1 := newTestBox(t)
	b2 := newTestBox(t)

	ct, err := b1.Encrypt("alice:code")
	require.NoError(t, err)
	_, err = b2.Decrypt(ct)
	assert.Error(t, err)
}

func TestNewValidatesKey(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
	_, err = New("demasiado-corta")
	assert.Error(t, err)
	_, err = NewFromBytes(make([]byte, 16))
	assert.Error(t, err)

	key := make([]byte, 32)
	_, err = New(base64.StdEncoding.EncodeToString(key))
	assert.NoError(t, err)
	// También acepta base64 sin padding.
	_, err = New(base64.RawStdEncoding.EncodeToString(key))
	assert.NoError(t, err)
}
