package agent

import (
	"context"
	"sort"
	"strings"

	"github.com/engramhq/engram/internal/models"
	"github.com/engramhq/engram/internal/query"
)

const dayMs int64 = 86_400_000

// TemporalRange is the parsed form of a temporal query: an optional
// [after, before) window in unix-ms and whatever text is left once the
// matched time phrase and question filler words ("what happened", "did
// i", ...) are removed.
type TemporalRange struct {
	After     *int64
	Before    *int64
	Remaining string
}

// temporalPhrase is one recognized phrase and the window it resolves to,
// relative to the start of "today" (now truncated to the UTC day
// boundary). Phrases are tried longest-first so "last week" is not
// shadowed by a bare "week" rule.
type temporalPhrase struct {
	phrase   string
	daysBack int // window is [todayStart - daysBack days, todayStart - daysBack days + span)
	spanDays int
}

var temporalPhrases = []temporalPhrase{
	{"last month", 30, 30},
	{"this month", 0, 30},
	{"last week", 7, 7},
	{"this week", 0, 7},
	{"yesterday", 1, 1},
	{"today", 0, 1},
}

// parseTemporal extracts a recognized time phrase from queryText and
// returns the window it implies plus the remaining text, with filler
// words dropped. Phrases not in temporalPhrases are left untouched, so
// Remaining == queryText and After/Before are nil.
func parseTemporal(queryText string, now int64) TemporalRange {
	lowered := strings.ToLower(queryText)
	todayStart := (now / dayMs) * dayMs
	filler := map[string]bool{"what": true, "happened": true, "did": true, "do": true, "i": true,
		"we": true, "from": true, "on": true, "in": true, "during": true}

	for _, p := range temporalPhrases {
		idx := strings.Index(lowered, p.phrase)
		if idx == -1 {
			continue
		}
		after := todayStart - int64(p.daysBack)*dayMs
		before := after + int64(p.spanDays)*dayMs

		var kept []string
		for _, w := range strings.Fields(lowered[:idx] + " " + lowered[idx+len(p.phrase):]) {
			if !filler[w] {
				kept = append(kept, w)
			}
		}
		remaining := strings.Join(kept, " ")

		return TemporalRange{After: &after, Before: &before, Remaining: remaining}
	}

	return TemporalRange{Remaining: strings.TrimSpace(queryText)}
}

// Temporal resolves a natural-language time phrase in queryText. A
// recognized time phrase with no remaining text returns every episode in
// range, newest first; otherwise the remaining text is recalled with the
// window applied as a filter.
func (m *AgentMemory) Temporal(ctx context.Context, queryText string, opts query.Options) ([]*models.ScoredEpisode, error) {
	var out []*models.ScoredEpisode
	err := m.withInit(ctx, "temporal", func() error {
		result, err := m.temporal(ctx, queryText, opts)
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	return out, err
}

func (m *AgentMemory) temporal(ctx context.Context, queryText string, opts query.Options) ([]*models.ScoredEpisode, error) {
	now := opts.Now
	if now == 0 {
		now = nowMillis()
	}
	rng := parseTemporal(queryText, now)

	if (rng.After != nil || rng.Before != nil) && rng.Remaining == "" {
		return m.episodesInRange(ctx, rng, now)
	}

	opts.Now = now
	opts.Filters.After = rng.After
	opts.Filters.Before = rng.Before
	return m.recall(ctx, rng.Remaining, opts)
}

func (m *AgentMemory) episodesInRange(ctx context.Context, rng TemporalRange, now int64) ([]*models.ScoredEpisode, error) {
	type hit struct {
		id        string
		createdAt int64
	}
	var hits []hit
	for id, doc := range m.index.Docs {
		if rng.After != nil && doc.CreatedAt < *rng.After {
			continue
		}
		if rng.Before != nil && doc.CreatedAt >= *rng.Before {
			continue
		}
		hits = append(hits, hit{id: id, createdAt: doc.CreatedAt})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].createdAt != hits[j].createdAt {
			return hits[i].createdAt > hits[j].createdAt
		}
		return hits[i].id > hits[j].id
	})

	results := make([]query.Result, len(hits))
	for i, h := range hits {
		results[i] = query.Result{ID: h.id}
	}
	return m.hydrateResults(ctx, results)
}
