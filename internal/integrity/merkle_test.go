package integrity

import (
	"math/rand"
	"testing"

	"github.com/engramhq/engram/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func episode(id, text string) *models.Episode {
	return &models.Episode{
		ID:        id,
		Text:      text,
		Type:      "fact",
		AgentID:   "test",
		CreatedAt: 1,
	}
}

func TestCanonicalHash_Deterministic(t *testing.T) {
	ep := episode("ep-001", "hello world")
	h1, err := HashHex(ep)
	require.NoError(t, err)
	h2, err := HashHex(ep)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestMerkle_ProofSoundness(t *testing.T) {
	episodes := []*models.Episode{
		episode("ep-001", "alpha"),
		episode("ep-002", "beta"),
		episode("ep-003", "gamma"),
	}
	snap, err := CreateSnapshot(episodes)
	require.NoError(t, err)

	for _, ep := range episodes {
		t.Run(ep.ID, func(t *testing.T) {
			proof, err := GetEpisodeProof(snap, ep.ID)
			require.NoError(t, err)
			ok, err := VerifyEpisode(ep, proof, snap.Root)
			require.NoError(t, err)
			assert.True(t, ok)

			mutated := episode(ep.ID, ep.Text+" tampered")
			ok, err = VerifyEpisode(mutated, proof, snap.Root)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestMerkle_DeterministicAcrossRepeatedCalls(t *testing.T) {
	episodes := []*models.Episode{
		episode("ep-001", "alpha"),
		episode("ep-002", "beta"),
		episode("ep-003", "gamma"),
	}
	snap1, err := CreateSnapshot(episodes)
	require.NoError(t, err)
	snap2, err := CreateSnapshot(episodes)
	require.NoError(t, err)
	assert.Equal(t, snap1.Root, snap2.Root)
}

func TestMerkle_MutationChangesRoot(t *testing.T) {
	episodes := []*models.Episode{
		episode("ep-001", "alpha"),
		episode("ep-002", "beta"),
		episode("ep-003", "gamma"),
	}
	before, err := CreateSnapshot(episodes)
	require.NoError(t, err)

	episodes[0].Text = "swapped"
	after, err := CreateSnapshot(episodes)
	require.NoError(t, err)

	assert.NotEqual(t, before.Root, after.Root)
}

func TestMerkle_OrderIndependentRoot(t *testing.T) {
	leaves := make([][32]byte, 7)
	r := rand.New(rand.NewSource(1))
	for i := range leaves {
		var b [32]byte
		r.Read(b[:])
		leaves[i] = b
	}

	root := BuildTree(leaves).Root()

	shuffled := make([][32]byte, len(leaves))
	copy(shuffled, leaves)
	r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	assert.Equal(t, root, BuildTree(shuffled).Root())
}

func TestMerkle_OddLeafCountSelfDuplicates(t *testing.T) {
	leaves := make([][32]byte, 3)
	for i := range leaves {
		leaves[i][0] = byte(i + 1)
	}
	tree := BuildTree(leaves)
	proof, err := tree.Proof(2)
	require.NoError(t, err)
	require.NotEmpty(t, proof.Steps)
	assert.True(t, VerifyProof(leaves[2], proof, tree.Root()))
}
