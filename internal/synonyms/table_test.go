package synonyms

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_DefaultGroupBridgesFXRPAndFlareXRP(t *testing.T) {
	table := New()
	expansion := table.Expand("FXRP allocation")
	assert.Contains(t, expansion.Expanded, "flare")
	assert.Contains(t, expansion.Expanded, "xrp")
}

func TestExpand_ExcludesWordsAlreadyInOriginal(t *testing.T) {
	table := New()
	expansion := table.Expand("xrp ripple price")
	for _, w := range expansion.Expanded {
		assert.NotEqual(t, "xrp", w)
		assert.NotEqual(t, "ripple", w)
	}
}

func TestExpand_NoMatchLeavesExpandedEmpty(t *testing.T) {
	table := New()
	expansion := table.Expand("the weather is nice today")
	assert.Empty(t, expansion.Expanded)
}

func TestLoadFile_MissingFileIsNotAnError(t *testing.T) {
	table := New()
	err := table.LoadFile(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
}

func TestLoadFile_BareArrayAndKeyedFormBothParse(t *testing.T) {
	dir := t.TempDir()

	bare := filepath.Join(dir, "bare.json")
	require.NoError(t, os.WriteFile(bare, []byte(`[["bullish", "long"]]`), 0o644))

	keyed := filepath.Join(dir, "keyed.json")
	require.NoError(t, os.WriteFile(keyed, []byte(`{"groups": [["bearish", "short"]]}`), 0o644))

	table := New()
	require.NoError(t, table.LoadFile(bare))
	require.NoError(t, table.LoadFile(keyed))

	assert.Contains(t, table.Expand("bullish").Expanded, "long")
	assert.Contains(t, table.Expand("bearish").Expanded, "short")
}

func TestAdd_RuntimeGroupIsAdditive(t *testing.T) {
	table := New()
	table.Add([]string{"gm", "good morning"})
	expansion := table.Expand("gm everyone")
	assert.Contains(t, expansion.Expanded, "good")
	assert.Contains(t, expansion.Expanded, "morning")
}
