package agent

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/engramhq/engram/internal/crypto"
	"github.com/engramhq/engram/internal/models"
	"github.com/engramhq/engram/internal/query"
	"github.com/engramhq/engram/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemory(t *testing.T) *AgentMemory {
	t.Helper()
	store := storage.NewLocalStore(t.TempDir(), nil)
	return New(store, Options{AgentID: "test"})
}

func TestRememberRecallGetRecent(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t)

	episodes, err := m.Remember(ctx, "The deployment pipeline now runs integration tests before release.", DefaultRememberOptions())
	require.NoError(t, err)
	require.Len(t, episodes, 1)

	results, err := m.Recall(ctx, "deployment pipeline tests", query.DefaultOptions(time.Now().UnixMilli()))
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, episodes[0].ID, results[0].ID)
	assert.Equal(t, 1, results[0].AccessCount)

	recent, err := m.GetRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, episodes[0].ID, recent[0].ID)
}

func TestFindByTagStatsPruneForgetGetRecent(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t)

	old := DefaultRememberOptions()
	old.Tags = []string{"keep-me"}
	lowImportance := 0.01
	old.Importance = &lowImportance
	_, err := m.Remember(ctx, "a minor note from long ago about the weather", old)
	require.NoError(t, err)

	fresh := DefaultRememberOptions()
	fresh.Tags = []string{"keep-me"}
	importantEpisodes, err := m.Remember(ctx, "a critical production incident that paged the on-call engineer", fresh)
	require.NoError(t, err)

	tagged, err := m.FindByTag(ctx, "keep-me")
	require.NoError(t, err)
	assert.Len(t, tagged, 2)

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.EpisodeCount)
	assert.Equal(t, 2, stats.Storage.EpisodeCount)

	result, err := m.Prune(ctx, PruneOptions{Keep: 1, MaxAgeDays: 90, MinImportance: 0.05})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Remaining)
	assert.Equal(t, 1, result.Pruned)

	recent, err := m.GetRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, importantEpisodes[0].ID, recent[0].ID)

	deleted, err := m.Forget(ctx, recent[0].ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deletedAgain, err := m.Forget(ctx, recent[0].ID)
	require.NoError(t, err)
	assert.False(t, deletedAgain)

	recentAfter, err := m.GetRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recentAfter)
}

func TestSynonymBridge_FlareXRPMatchesFXRPQuery(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t)

	_, err := m.Remember(ctx, "Opened a new Flare XRP position worth 5000 tokens on Enosys", DefaultRememberOptions())
	require.NoError(t, err)

	results, err := m.Recall(ctx, "FXRP allocation", query.DefaultOptions(time.Now().UnixMilli()))
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Text, "Flare XRP")
}

func TestParseTemporal_Yesterday(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC).UnixMilli()
	rng := parseTemporal("what happened yesterday", now)
	require.NotNil(t, rng.After)
	require.NotNil(t, rng.Before)
	assert.Equal(t, dayMs, *rng.Before-*rng.After)
	assert.Empty(t, rng.Remaining)
}

func TestParseTemporal_LastWeek(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC).UnixMilli()
	rng := parseTemporal("what happened last week", now)
	require.NotNil(t, rng.After)
	require.NotNil(t, rng.Before)
	assert.Equal(t, 7*dayMs, *rng.Before-*rng.After)
}

func TestParseTemporal_NoRecognizedPhraseLeavesWindowOpen(t *testing.T) {
	now := time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC).UnixMilli()
	rng := parseTemporal("random query with no time", now)
	assert.Nil(t, rng.After)
	assert.Nil(t, rng.Before)
	assert.Equal(t, "random query with no time", rng.Remaining)
}

func TestTemporal_TodayReturnsEverythingInRange(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t)

	_, err := m.Remember(ctx, "noted a gas fee spike on the bridge", DefaultRememberOptions())
	require.NoError(t, err)

	results, err := m.Temporal(ctx, "what happened today", query.DefaultOptions(time.Now().UnixMilli()))
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestEncryptionRoundTrip_FreshOrchestratorOverSamePath(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	key := [32]byte{}
	for i := range key {
		key[i] = byte(i + 1)
	}
	keySource := crypto.KeySource{RawKeyHex: hexEncode(key)}

	store1 := storage.NewLocalStore(dir, nil)
	m1 := New(store1, Options{AgentID: "test", EncryptionEnabled: true, KeySource: keySource})
	episodes, err := m1.Remember(ctx, "the vault password rotation schedule is confidential", DefaultRememberOptions())
	require.NoError(t, err)

	results, err := m1.Recall(ctx, "vault password rotation", query.DefaultOptions(time.Now().UnixMilli()))
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "the vault password rotation schedule is confidential", results[0].Text)

	store2 := storage.NewLocalStore(dir, nil)
	m2 := New(store2, Options{AgentID: "test", EncryptionEnabled: true, KeySource: keySource})
	recent, err := m2.GetRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, episodes[0].ID, recent[0].ID)
	assert.Equal(t, "the vault password rotation schedule is confidential", recent[0].Text)

	recalled, err := m2.Recall(ctx, "vault password rotation", query.DefaultOptions(time.Now().UnixMilli()))
	require.NoError(t, err)
	require.NotEmpty(t, recalled, "BM25 recall must work against an index rebuilt from an encrypted store after restart")
	assert.Equal(t, episodes[0].ID, recalled[0].ID)
	assert.Equal(t, "the vault password rotation schedule is confidential", recalled[0].Text)
}

func TestIncrementalInit_MatchesFullRebuildAfterRememberAndForget(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store1 := storage.NewLocalStore(dir, nil)
	m1 := New(store1, Options{AgentID: "test"})
	_, err := m1.Remember(ctx, "first note about the release process", DefaultRememberOptions())
	require.NoError(t, err)
	toForget, err := m1.Remember(ctx, "second note about a rollback", DefaultRememberOptions())
	require.NoError(t, err)
	_, err = m1.Remember(ctx, "third note about monitoring dashboards", DefaultRememberOptions())
	require.NoError(t, err)
	_, err = m1.Forget(ctx, toForget[0].ID)
	require.NoError(t, err)

	store2 := storage.NewLocalStore(dir, nil)
	m2 := New(store2, Options{AgentID: "test"})
	stats2, err := m2.Stats(ctx)
	require.NoError(t, err)

	rebuilt := query.New()
	all, err := store1.GetAllEpisodes(ctx)
	require.NoError(t, err)
	rebuilt.Rebuild(all)

	assert.Equal(t, rebuilt.TotalDocs, stats2.EpisodeCount)

	results2, err := m2.Recall(ctx, "rollback monitoring release", query.DefaultOptions(time.Now().UnixMilli()))
	require.NoError(t, err)
	resultsFull := query.Search(rebuilt, "rollback monitoring release", m2.synTable, query.DefaultOptions(time.Now().UnixMilli()))
	assert.Equal(t, len(resultsFull), len(results2))
}

func TestIncrementalInit_WithEncryptionStillRecallableAfterRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	key := [32]byte{}
	for i := range key {
		key[i] = byte(i + 7)
	}
	keySource := crypto.KeySource{RawKeyHex: hexEncode(key)}

	store1 := storage.NewLocalStore(dir, nil)
	m1 := New(store1, Options{AgentID: "test", EncryptionEnabled: true, KeySource: keySource})
	_, err := m1.Remember(ctx, "the incident postmortem names the root cause as a stale cache", DefaultRememberOptions())
	require.NoError(t, err)

	// A second restart accepts the persisted index incrementally (the
	// HydrateDoc path in loadOrRebuildIndex) rather than rebuilding from
	// scratch; it must still decrypt before deriving tf/dl.
	store2 := storage.NewLocalStore(dir, nil)
	m2 := New(store2, Options{AgentID: "test", EncryptionEnabled: true, KeySource: keySource})
	results, err := m2.Recall(ctx, "postmortem root cause stale cache", query.DefaultOptions(time.Now().UnixMilli()))
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Text, "stale cache")
}

func TestReindex_WithEncryptionStillRecallable(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	key := [32]byte{}
	for i := range key {
		key[i] = byte(i + 3)
	}
	keySource := crypto.KeySource{RawKeyHex: hexEncode(key)}

	store := storage.NewLocalStore(dir, nil)
	m := New(store, Options{AgentID: "test", EncryptionEnabled: true, KeySource: keySource})
	_, err := m.Remember(ctx, "the signing key rotates every quarter", DefaultRememberOptions())
	require.NoError(t, err)

	err = m.Reindex(ctx, nil)
	require.NoError(t, err)

	results, err := m.Recall(ctx, "signing key rotates quarter", query.DefaultOptions(time.Now().UnixMilli()))
	require.NoError(t, err)
	require.NotEmpty(t, results, "BM25 recall must work after a forced reindex of an encrypted store")
	assert.Contains(t, results[0].Text, "signing key")
}

func TestChainAndSupersession(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t)

	v1, err := m.Remember(ctx, "the API rate limit is 100 requests per minute", DefaultRememberOptions())
	require.NoError(t, err)

	opts := DefaultRememberOptions()
	opts.Supersedes = []string{v1[0].ID}
	v2, err := m.Remember(ctx, "the API rate limit is now 500 requests per minute", opts)
	require.NoError(t, err)

	chain, err := m.Chain(ctx, v1[0].ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, v1[0].ID, chain[0].ID)
	assert.Equal(t, v2[0].ID, chain[1].ID)
	assert.Contains(t, chain[0].SupersededBy, v2[0].ID)
}

func TestRemember_MultiHopSupersedesChainUnaffectedByCycleGuard(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t)

	v1, err := m.Remember(ctx, "the deploy window is Tuesdays at noon", DefaultRememberOptions())
	require.NoError(t, err)

	opts2 := DefaultRememberOptions()
	opts2.Supersedes = []string{v1[0].ID}
	v2, err := m.Remember(ctx, "the deploy window moved to Thursdays at noon", opts2)
	require.NoError(t, err)

	opts3 := DefaultRememberOptions()
	opts3.Supersedes = []string{v2[0].ID}
	v3, err := m.Remember(ctx, "the deploy window moved again to Mondays at 9am", opts3)
	require.NoError(t, err)

	chain, err := m.Chain(ctx, v1[0].ID)
	require.NoError(t, err)
	require.Len(t, chain, 3, "the cycle guard must not reject legitimate, strictly-forward supersedes chains")
	assert.Equal(t, v1[0].ID, chain[0].ID)
	assert.Equal(t, v2[0].ID, chain[1].ID)
	assert.Equal(t, v3[0].ID, chain[2].ID)
}

func TestSnapshotAndVerify(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t)

	episodes, err := m.Remember(ctx, "the backup job runs nightly at 2am UTC", DefaultRememberOptions())
	require.NoError(t, err)

	snap, err := m.Snapshot(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, snap.Root)

	ok, err := m.Verify(ctx, snap.Root, episodes[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHourlySummary_MarksSourcesSuperseded(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t)

	a, err := m.Remember(ctx, "deployed version 1.2.3 to production", DefaultRememberOptions())
	require.NoError(t, err)
	b, err := m.Remember(ctx, "rotated the database credentials", DefaultRememberOptions())
	require.NoError(t, err)

	summary, err := m.HourlySummary(ctx, HourlySummaryOptions{Hours: 1, MarkSuperseded: true})
	require.NoError(t, err)
	assert.Equal(t, models.TypeSummary, summary.Type)

	chainA, err := m.Chain(ctx, a[0].ID)
	require.NoError(t, err)
	assert.Equal(t, summary.ID, chainA[len(chainA)-1].ID)

	chainB, err := m.Chain(ctx, b[0].ID)
	require.NoError(t, err)
	assert.Equal(t, summary.ID, chainB[len(chainB)-1].ID)
}

func hexEncode(key [32]byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 0, len(key)*2)
	for _, b := range key {
		out = append(out, hexDigits[b>>4], hexDigits[b&0x0f])
	}
	return string(out)
}

func TestNew_DefaultsAgentIDWhenEmpty(t *testing.T) {
	store := storage.NewLocalStore(filepath.Join(t.TempDir(), "store"), nil)
	m := New(store, Options{})
	assert.Equal(t, "default", m.agentID)
}

func TestReindex_ReportsProgressAndMatchesRecall(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory(t)

	for _, text := range []string{
		"Opened a new Flare XRP position worth 5000 tokens on Enosys",
		"Closed the FXRP allocation after the price target was hit",
		"Rotated the on-call rotation for next week",
	} {
		_, err := m.Remember(ctx, text, DefaultRememberOptions())
		require.NoError(t, err)
	}

	var calls []int
	err := m.Reindex(ctx, func(done, total int) {
		calls = append(calls, done)
		assert.Equal(t, 3, total)
	})
	require.NoError(t, err)
	require.Len(t, calls, 3)
	assert.Equal(t, []int{1, 2, 3}, calls)

	results, err := m.Recall(ctx, "FXRP allocation", query.DefaultOptions(time.Now().UnixMilli()))
	require.NoError(t, err)
	require.NotEmpty(t, results)
}
