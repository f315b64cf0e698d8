package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/engramhq/engram/internal/models"
	"github.com/engramhq/engram/internal/storage"
)

// HourlySummaryOptions tunes hourlySummary.
type HourlySummaryOptions struct {
	Hours          int
	MarkSuperseded bool
}

// DefaultHourlySummaryOptions returns a one-hour lookback.
func DefaultHourlySummaryOptions() HourlySummaryOptions {
	return HourlySummaryOptions{Hours: 1}
}

// HourlySummary gathers non-summary episodes from the lookback window
// and emits one summary episode listing them, optionally marking the
// sources as superseded by the new summary.
func (m *AgentMemory) HourlySummary(ctx context.Context, opts HourlySummaryOptions) (*models.Episode, error) {
	var out *models.Episode
	err := m.withInit(ctx, "hourlySummary", func() error {
		result, err := m.hourlySummary(ctx, opts)
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	return out, err
}

func (m *AgentMemory) hourlySummary(ctx context.Context, opts HourlySummaryOptions) (*models.Episode, error) {
	hours := opts.Hours
	if hours <= 0 {
		hours = 1
	}
	now := nowMillis()
	cutoff := now - int64(hours)*3600*1000

	type source struct {
		id        string
		createdAt int64
	}
	var sources []source
	for id, doc := range m.index.Docs {
		if doc.Type == models.TypeSummary {
			continue
		}
		if doc.CreatedAt < cutoff {
			continue
		}
		sources = append(sources, source{id: id, createdAt: doc.CreatedAt})
	}
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].createdAt != sources[j].createdAt {
			return sources[i].createdAt < sources[j].createdAt
		}
		return sources[i].id < sources[j].id
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "Summary of %d episode(s) from the last %d hour(s):\n", len(sources), hours)
	sourceIDs := make([]string, 0, len(sources))
	for _, s := range sources {
		ep, err := m.store.GetEpisode(ctx, s.id)
		if err != nil {
			return nil, err
		}
		text := ep.Text
		if ep.Encrypted {
			text = "(encrypted)"
		}
		ts := time.UnixMilli(s.createdAt).UTC().Format("15:04:05")
		fmt.Fprintf(&sb, "- [%s] (%s) %s\n", ts, ep.Type, text)
		sourceIDs = append(sourceIDs, s.id)
	}

	result, err := m.remember(ctx, sb.String(), RememberOptions{
		Type:       models.TypeSummary,
		Supersedes: nil,
	})
	if err != nil {
		return nil, err
	}
	summary := result[0]

	if opts.MarkSuperseded {
		for _, id := range sourceIDs {
			if err := m.linkSupersession(ctx, id, summary.ID); err != nil {
				m.logger.Warn("failed to mark source superseded by summary", "id", id, "error", err)
			}
		}
		if indexStore, ok := m.store.(storage.IndexStore); ok {
			if err := indexStore.SaveBM25Index(ctx, m.index.ToPersisted()); err != nil {
				m.logger.Warn("failed to persist bm25 index after hourly summary", "error", err)
			}
		}
	}

	return summary, nil
}
