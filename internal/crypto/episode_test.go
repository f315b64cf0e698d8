package crypto

import (
	"testing"

	"github.com/engramhq/engram/internal/analyzer"
	"github.com/engramhq/engram/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptEpisode_RoundTrip(t *testing.T) {
	key := randomKey(t)
	ep := &models.Episode{
		ID:         "ep-001",
		Text:       "secret content",
		Type:       "lesson",
		Tags:       []string{"classified"},
		Importance: 0.9,
		AgentID:    "test",
	}

	require.NoError(t, EncryptEpisode(ep, key))
	assert.True(t, ep.Encrypted)
	assert.True(t, ep.TagsEncrypted)
	assert.NotContains(t, ep.Text, "secret content")
	assert.Nil(t, ep.Tokens, "tokens must not be persisted alongside a sealed body")
	// non-secret fields stay in cleartext
	assert.Equal(t, "lesson", ep.Type)
	assert.Equal(t, 0.9, ep.Importance)

	require.NoError(t, DecryptEpisode(ep, key))
	assert.False(t, ep.Encrypted)
	assert.False(t, ep.TagsEncrypted)
	assert.Equal(t, "secret content", ep.Text)
	assert.Equal(t, []string{"classified"}, ep.Tags)
	assert.Equal(t, analyzer.Tokenize("secret content"), ep.Tokens)
}

func TestEncryptEpisode_NoTagsLeavesTagsEncryptedFalse(t *testing.T) {
	key := randomKey(t)
	ep := &models.Episode{ID: "ep-001", Text: "plain"}
	require.NoError(t, EncryptEpisode(ep, key))
	assert.False(t, ep.TagsEncrypted)
	assert.Empty(t, ep.Tags)
}

func TestDecryptEpisode_WrongKeyFails(t *testing.T) {
	key := randomKey(t)
	wrongKey := randomKey(t)
	ep := &models.Episode{ID: "ep-001", Text: "secret content"}
	require.NoError(t, EncryptEpisode(ep, key))

	err := DecryptEpisode(ep, wrongKey)
	require.Error(t, err)
}
