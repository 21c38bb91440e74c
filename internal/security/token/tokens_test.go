package token

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOpaque(t *testing.T) {
	a, err := GenerateOpaque(32)
	require.NoError(t, err)
	b, err := GenerateOpaque(32)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)

	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestSHA256Base64URL(t *testing.T) {
	// Vector del método S256 de PKCE: challenge = b64url(sha256(verifier)).
	sum := sha256.Sum256([]byte("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"))
	want := base64.RawURLEncoding.EncodeToString(sum[:])
	assert.Equal(t, want, SHA256Base64URL("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"))

	// Determinístico y sin padding.
	assert.Equal(t, SHA256Base64URL("x"), SHA256Base64URL("x"))
	assert.NotContains(t, SHA256Base64URL("x"), "=")
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("abc", "abc"))
	assert.False(t, Equal("abc", "abd"))
	assert.False(t, Equal("abc", "abcd"))
	assert.True(t, Equal("", ""))
}

func TestRevocationSentinelNeverRepeats(t *testing.T) {
	a, err := RevocationSentinel()
	require.NoError(t, err)
	b, err := RevocationSentinel()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}
