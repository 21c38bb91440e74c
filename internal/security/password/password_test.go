package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	h, err := Hash("s3cr3t")
	require.NoError(t, err)
	assert.NotEmpty(t, h)

	assert.True(t, Verify("s3cr3t", h))
	assert.False(t, Verify("wrong", h))
}

func TestHashSaltsPerCall(t *testing.T) {
	h1, err := Hash("same-input")
	require.NoError(t, err)
	h2, err := Hash("same-input")
	require.NoError(t, err)

	// bcrypt genera salt nuevo por llamada: los hashes difieren pero ambos
	// verifican.
	assert.NotEqual(t, h1, h2)
	assert.True(t, Verify("same-input", h1))
	assert.True(t, Verify("same-input", h2))
}

func TestHashRejectsEmpty(t *testing.T) {
	_, err := Hash("")
	assert.Error(t, err)
}

func TestVerifyRejectsGarbageHash(t *testing.T) {
	assert.False(t, Verify("anything", "no-es-base64!!"))
	assert.False(t, Verify("anything", ""))
}
