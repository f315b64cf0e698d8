package crypto

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/engramhq/engram/internal/engramerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomKey(t *testing.T) [32]byte {
	var key [32]byte
	_, err := rand.Read(key[:])
	require.NoError(t, err)
	return key
}

func TestSealOpen_RoundTrip(t *testing.T) {
	texts := []string{
		"secret content",
		"",
		"unicode: café étoile",
	}
	key := randomKey(t)

	for _, text := range texts {
		env, err := Seal([]byte(text), key)
		require.NoError(t, err)

		plaintext, err := Open(env, key)
		require.NoError(t, err)
		assert.Equal(t, text, string(plaintext))
	}
}

func TestOpen_WrongKeyFailsWithIntegrityError(t *testing.T) {
	key := randomKey(t)
	wrongKey := randomKey(t)

	env, err := Seal([]byte("secret content"), key)
	require.NoError(t, err)

	_, err = Open(env, wrongKey)
	require.Error(t, err)
	assert.True(t, errors.Is(err, engramerr.ErrIntegrity))
}

func TestEnvelope_MarshalUnmarshalRoundTrip(t *testing.T) {
	key := randomKey(t)
	env, err := Seal([]byte("hello"), key)
	require.NoError(t, err)

	text, err := env.Marshal()
	require.NoError(t, err)

	parsed, err := UnmarshalEnvelope(text)
	require.NoError(t, err)

	plaintext, err := Open(parsed, key)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(plaintext))
}

func TestUnmarshalEnvelope_MalformedJSON(t *testing.T) {
	_, err := UnmarshalEnvelope("not json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, engramerr.ErrMalformed))
}
