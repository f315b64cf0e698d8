package agent

import (
	"context"
	"sort"

	"github.com/engramhq/engram/internal/query"
	"github.com/engramhq/engram/internal/storage"
)

// PruneOptions tunes the retention policy.
type PruneOptions struct {
	Keep          int
	MaxAgeDays    float64
	MinImportance float64
}

// DefaultPruneOptions returns the documented defaults.
func DefaultPruneOptions() PruneOptions {
	return PruneOptions{Keep: 1000, MaxAgeDays: 90, MinImportance: 0.05}
}

// PruneResult reports what prune removed.
type PruneResult struct {
	Pruned    int
	Remaining int
}

// Prune ranks all episodes by effective importance and forgets anything
// past the keep cutoff, or anything both older than maxAgeDays and below
// minImportance.
func (m *AgentMemory) Prune(ctx context.Context, opts PruneOptions) (PruneResult, error) {
	var out PruneResult
	err := m.withInit(ctx, "prune", func() error {
		result, err := m.prune(ctx, opts)
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	return out, err
}

func (m *AgentMemory) prune(ctx context.Context, opts PruneOptions) (PruneResult, error) {
	if opts.Keep <= 0 {
		opts.Keep = 1000
	}
	if opts.MaxAgeDays <= 0 {
		opts.MaxAgeDays = 90
	}

	now := nowMillis()
	type candidate struct {
		id      string
		effImp  float64
		ageDays float64
	}
	candidates := make([]candidate, 0, len(m.index.Docs))
	for id, doc := range m.index.Docs {
		effImp := query.EffImportance(doc.Importance, now, doc.LastAccessedAt)
		ageDays := float64(now-doc.CreatedAt) / float64(dayMs)
		candidates = append(candidates, candidate{id: id, effImp: effImp, ageDays: ageDays})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].effImp != candidates[j].effImp {
			return candidates[i].effImp > candidates[j].effImp
		}
		return candidates[i].id < candidates[j].id
	})

	var result PruneResult
	for rank, c := range candidates {
		forget := rank >= opts.Keep || (c.ageDays > opts.MaxAgeDays && c.effImp < opts.MinImportance)
		if !forget {
			result.Remaining++
			continue
		}
		if _, err := m.forget(ctx, c.id); err != nil {
			return PruneResult{}, err
		}
		result.Pruned++
	}

	if indexStore, ok := m.store.(storage.IndexStore); ok {
		if err := indexStore.SaveBM25Index(ctx, m.index.ToPersisted()); err != nil {
			m.logger.Warn("failed to persist bm25 index after prune", "error", err)
		}
	}
	return result, nil
}
