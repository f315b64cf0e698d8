package agent

import (
	"context"

	"github.com/engramhq/engram/internal/query"
	"github.com/engramhq/engram/internal/storage"
)

// Reindex forces a full BM25 rebuild from every episode on disk,
// discarding whatever was loaded or persisted at init. onProgress, if
// non-nil, is called after each episode is added with (done, total).
func (m *AgentMemory) Reindex(ctx context.Context, onProgress func(done, total int)) error {
	return m.withInit(ctx, "reindex", func() error {
		all, err := m.store.GetAllEpisodes(ctx)
		if err != nil {
			return err
		}
		if err := m.decryptForIndexing(all); err != nil {
			return err
		}

		fresh := query.New()
		total := len(all)
		for i, ep := range all {
			fresh.Add(ep)
			if onProgress != nil {
				onProgress(i+1, total)
			}
		}
		m.index = fresh

		if indexStore, ok := m.store.(storage.IndexStore); ok {
			if err := indexStore.SaveBM25Index(ctx, m.index.ToPersisted()); err != nil {
				return err
			}
		}
		return nil
	})
}
