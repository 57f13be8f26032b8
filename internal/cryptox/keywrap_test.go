package cryptox

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := rand.Read(k)
	require.NoError(t, err)
	return k
}

func TestSealOpenKey_RoundTrip(t *testing.T) {
	wrapping := randomKey(t)
	content := randomKey(t)

	envelope, err := SealKey(content, wrapping)
	require.NoError(t, err)
	assert.NotEqual(t, content, envelope)

	got, err := OpenKey(envelope, wrapping)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestSealKey_UniqueNonces(t *testing.T) {
	wrapping := randomKey(t)
	content := randomKey(t)

	a, err := SealKey(content, wrapping)
	require.NoError(t, err)
	b, err := SealKey(content, wrapping)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestOpenKey_WrongKey(t *testing.T) {
	envelope, err := SealKey(randomKey(t), randomKey(t))
	require.NoError(t, err)

	_, err = OpenKey(envelope, randomKey(t))
	assert.Error(t, err)
}

func TestOpenKey_TruncatedEnvelope(t *testing.T) {
	_, err := OpenKey([]byte{1, 2, 3}, randomKey(t))
	assert.Error(t, err)
}

func TestSealKey_BadWrappingKeyLength(t *testing.T) {
	_, err := SealKey(randomKey(t), []byte("short"))
	assert.Error(t, err)
}
