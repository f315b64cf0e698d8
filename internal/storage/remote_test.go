package storage

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/engramhq/engram/internal/engramerr"
	"github.com/engramhq/engram/internal/models"
	"github.com/engramhq/engram/internal/storage/remoteserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRemoteStore(t *testing.T) *RemoteStore {
	t.Helper()
	srv := remoteserver.New(slog.New(slog.DiscardHandler))
	httpSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(httpSrv.Close)
	return NewRemoteStore(httpSrv.URL + "/command")
}

func TestRemoteStore_SaveGetDeleteEpisode(t *testing.T) {
	ctx := context.Background()
	store := newTestRemoteStore(t)
	require.NoError(t, store.Init(ctx))

	ep := &models.Episode{ID: "ep-1", Text: "hello world", Type: "fact", CreatedAt: 1}
	require.NoError(t, store.SaveEpisode(ctx, ep))

	got, err := store.GetEpisode(ctx, "ep-1")
	require.NoError(t, err)
	assert.Equal(t, "hello world", got.Text)

	deleted, err := store.DeleteEpisode(ctx, "ep-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = store.GetEpisode(ctx, "ep-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, engramerr.ErrNotFound)
}

func TestRemoteStore_GetEpisode_NotFoundMapsToErrNotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestRemoteStore(t)
	_, err := store.GetEpisode(ctx, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, engramerr.ErrNotFound)
}

func TestRemoteStore_TagIndexRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestRemoteStore(t)

	ep := &models.Episode{ID: "ep-1", Tags: []string{"fxrp"}, CreatedAt: 1}
	require.NoError(t, store.AddToTagIndex(ctx, ep))

	ids, err := store.GetByTag(ctx, "fxrp")
	require.NoError(t, err)
	assert.Equal(t, []string{"ep-1"}, ids)

	require.NoError(t, store.RemoveFromTagIndex(ctx, "ep-1"))
	ids, err = store.GetByTag(ctx, "fxrp")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRemoteStore_BM25IndexRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestRemoteStore(t)

	loaded, err := store.LoadBM25Index(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	idx := &models.PersistedIndex{TotalDocs: 3, TotalLength: 30, DF: map[string]int{"fxrp": 2}}
	require.NoError(t, store.SaveBM25Index(ctx, idx))

	loaded, err = store.LoadBM25Index(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 3, loaded.TotalDocs)
	assert.Equal(t, 2, loaded.DF["fxrp"])
}

func TestRemoteStore_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestRemoteStore(t)

	snap := &models.Snapshot{Root: "abc123", EpisodeCount: 1, Timestamp: 1000}
	require.NoError(t, store.SaveSnapshot(ctx, snap))

	latest, err := store.LoadLatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "abc123", latest.Root)

	byRoot, err := store.LoadSnapshotByRoot(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), byRoot.Timestamp)

	_, err = store.LoadSnapshotByRoot(ctx, "does-not-exist")
	require.Error(t, err)
	assert.ErrorIs(t, err, engramerr.ErrNotFound)
}

func TestRemoteStore_GetStats(t *testing.T) {
	ctx := context.Background()
	store := newTestRemoteStore(t)

	require.NoError(t, store.SaveEpisode(ctx, &models.Episode{ID: "ep-1", CreatedAt: 1}))
	require.NoError(t, store.SaveEpisode(ctx, &models.Episode{ID: "ep-2", CreatedAt: 2}))

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.EpisodeCount)
}

var _ Store = (*RemoteStore)(nil)
