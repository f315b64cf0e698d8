package agent

import (
	"context"
	"sort"

	"github.com/engramhq/engram/internal/engramerr"
	"github.com/engramhq/engram/internal/integrity"
	"github.com/engramhq/engram/internal/metrics"
	"github.com/engramhq/engram/internal/models"
	"github.com/engramhq/engram/internal/query"
	"github.com/engramhq/engram/internal/storage"
)

// forget removes id from storage, the tag index, and the in-memory
// posting statistics. Callers must hold m.mu (via withInit).
func (m *AgentMemory) forget(ctx context.Context, id string) (bool, error) {
	if err := m.store.RemoveFromTagIndex(ctx, id); err != nil {
		return false, err
	}
	deleted, err := m.store.DeleteEpisode(ctx, id)
	if err != nil {
		return false, err
	}
	m.index.Remove(id)
	return deleted, nil
}

// Forget deletes a single episode by id, reporting whether it existed.
func (m *AgentMemory) Forget(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := m.withInit(ctx, "forget", func() error {
		d, err := m.forget(ctx, id)
		if err != nil {
			return err
		}
		deleted = d
		if indexStore, ok := m.store.(storage.IndexStore); ok {
			if err := indexStore.SaveBM25Index(ctx, m.index.ToPersisted()); err != nil {
				m.logger.Warn("failed to persist bm25 index after forget", "error", err)
			}
		}
		return nil
	})
	return deleted, err
}

// Chain returns the supersession chain rooted at id's earliest ancestor,
// oldest to newest.
func (m *AgentMemory) Chain(ctx context.Context, id string) ([]*models.Episode, error) {
	var out []*models.Episode
	err := m.withInit(ctx, "chain", func() error {
		chain, err := query.SupersessionChain(ctx, m.store, id)
		if err != nil {
			return err
		}
		out = chain
		return nil
	})
	return out, err
}

// Snapshot builds a Merkle anchor over every stored episode in its
// as-stored (possibly ciphertext) form and persists it if the backing
// store supports anchoring.
func (m *AgentMemory) Snapshot(ctx context.Context) (*models.Snapshot, error) {
	var out *models.Snapshot
	err := m.withInit(ctx, "snapshot", func() error {
		episodes, err := m.store.GetAllEpisodes(ctx)
		if err != nil {
			return err
		}
		snap, err := integrity.CreateSnapshot(episodes)
		if err != nil {
			return err
		}
		if snapStore, ok := m.store.(storage.SnapshotStore); ok {
			if err := snapStore.SaveSnapshot(ctx, snap); err != nil {
				return err
			}
		}
		out = snap
		return nil
	})
	return out, err
}

// Verify checks that id's as-stored canonical hash, combined with the
// inclusion proof recorded against rootHex, recomputes to rootHex.
func (m *AgentMemory) Verify(ctx context.Context, rootHex, id string) (bool, error) {
	var ok bool
	err := m.withInit(ctx, "verify", func() error {
		snapStore, canVerify := m.store.(storage.SnapshotStore)
		if !canVerify {
			return engramerr.Wrap(engramerr.ErrPolicy, "store does not support snapshot verification")
		}
		snap, err := snapStore.LoadSnapshotByRoot(ctx, rootHex)
		if err != nil {
			return err
		}
		proof, err := integrity.GetEpisodeProof(snap, id)
		if err != nil {
			return err
		}
		ep, err := m.store.GetEpisode(ctx, id)
		if err != nil {
			return err
		}
		verified, err := integrity.VerifyEpisode(ep, proof, rootHex)
		if err != nil {
			return err
		}
		ok = verified
		return nil
	})
	return ok, err
}

// GetRecent returns up to n episodes, newest first, decrypted but
// without bumping access stats.
func (m *AgentMemory) GetRecent(ctx context.Context, n int) ([]*models.Episode, error) {
	var out []*models.Episode
	err := m.withInit(ctx, "getRecent", func() error {
		type hit struct {
			id        string
			createdAt int64
		}
		hits := make([]hit, 0, len(m.index.Docs))
		for id, doc := range m.index.Docs {
			hits = append(hits, hit{id, doc.CreatedAt})
		}
		sort.Slice(hits, func(i, j int) bool {
			if hits[i].createdAt != hits[j].createdAt {
				return hits[i].createdAt > hits[j].createdAt
			}
			return hits[i].id > hits[j].id
		})
		if n > 0 && len(hits) > n {
			hits = hits[:n]
		}
		episodes := make([]*models.Episode, 0, len(hits))
		for _, h := range hits {
			scored, err := m.hydrateAndTouchNoPersist(ctx, h.id)
			if err != nil {
				return err
			}
			episodes = append(episodes, &scored.Episode)
		}
		out = episodes
		return nil
	})
	return out, err
}

// FindByTag returns every episode carrying tag, decrypted but without
// bumping access stats.
func (m *AgentMemory) FindByTag(ctx context.Context, tag string) ([]*models.Episode, error) {
	var out []*models.Episode
	err := m.withInit(ctx, "findByTag", func() error {
		ids, err := m.store.GetByTag(ctx, tag)
		if err != nil {
			return err
		}
		episodes := make([]*models.Episode, 0, len(ids))
		for _, id := range ids {
			scored, err := m.hydrateAndTouchNoPersist(ctx, id)
			if err != nil {
				return err
			}
			episodes = append(episodes, &scored.Episode)
		}
		out = episodes
		return nil
	})
	return out, err
}

// StatsSnapshot combines storage-level counters, index-level corpus
// stats, and runtime operation timings for the stats CLI command.
type StatsSnapshot struct {
	Storage      storage.Stats
	EpisodeCount int
	TotalTerms   int
	AvgDocLength float64
	Operations   []metrics.OperationSnapshot
}

// Stats reports storage, index and runtime counters.
func (m *AgentMemory) Stats(ctx context.Context) (StatsSnapshot, error) {
	var out StatsSnapshot
	err := m.withInit(ctx, "stats", func() error {
		storageStats, err := m.store.GetStats(ctx)
		if err != nil {
			return err
		}
		out = StatsSnapshot{
			Storage:      storageStats,
			EpisodeCount: m.index.TotalDocs,
			TotalTerms:   len(m.index.DF),
			AvgDocLength: m.index.AvgDL(),
			Operations:   m.metrics.Snapshot(),
		}
		return nil
	})
	return out, err
}
