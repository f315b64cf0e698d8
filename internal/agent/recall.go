package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/engramhq/engram/internal/analyzer"
	"github.com/engramhq/engram/internal/crypto"
	"github.com/engramhq/engram/internal/models"
	"github.com/engramhq/engram/internal/query"
)

func nowMillis() int64 { return time.Now().UnixMilli() }

// Recall runs the blended BM25/recency/importance search and hydrates
// every hit's body, updating access stats on the way.
func (m *AgentMemory) Recall(ctx context.Context, q string, opts query.Options) ([]*models.ScoredEpisode, error) {
	var out []*models.ScoredEpisode
	err := m.withInit(ctx, "recall", func() error {
		result, err := m.recall(ctx, q, opts)
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	return out, err
}

func (m *AgentMemory) recall(ctx context.Context, q string, opts query.Options) ([]*models.ScoredEpisode, error) {
	if opts.Now == 0 {
		opts.Now = nowMillis()
	}
	results := query.Search(m.index, q, m.synTable, opts)
	return m.hydrateResults(ctx, results)
}

// hydrateResults loads the full body for each search hit concurrently
// (each fetch is an independent store round trip, so this matters most
// against RemoteStore), decrypts if needed, and bumps access stats.
func (m *AgentMemory) hydrateResults(ctx context.Context, results []query.Result) ([]*models.ScoredEpisode, error) {
	scored := make([]*models.ScoredEpisode, len(results))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range results {
		i, r := i, r
		g.Go(func() error {
			ep, err := m.hydrateAndTouch(gctx, r)
			if err != nil {
				return fmt.Errorf("hydrate %s: %w", r.ID, err)
			}
			scored[i] = ep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make([]*models.ScoredEpisode, 0, len(scored))
	for _, s := range scored {
		if s != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

// hydrateAndTouch loads one episode, decrypts it, records the access,
// and re-persists the bumped lastAccessedAt/accessCount.
func (m *AgentMemory) hydrateAndTouch(ctx context.Context, r query.Result) (*models.ScoredEpisode, error) {
	ep, err := m.store.GetEpisode(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if ep.Encrypted || ep.TagsEncrypted {
		key, err := m.requireKey()
		if err != nil {
			return nil, err
		}
		if err := crypto.DecryptEpisode(ep, key); err != nil {
			return nil, err
		}
	}

	now := nowMillis()
	ep.LastAccessedAt = now
	ep.AccessCount++

	toSave := ep
	if m.encryptionEnabled {
		clone := *ep
		clone.Tags = append([]string(nil), ep.Tags...)
		key, err := m.requireKey()
		if err != nil {
			return nil, err
		}
		if err := crypto.EncryptEpisode(&clone, key); err != nil {
			return nil, err
		}
		toSave = &clone
	}
	if err := m.store.SaveEpisode(ctx, toSave); err != nil {
		return nil, err
	}
	if entry, ok := m.index.Docs[ep.ID]; ok {
		entry.LastAccessedAt = now
	}

	return &models.ScoredEpisode{Episode: *ep, Score: r.Score, BM25: r.BM25, Recency: r.Recency}, nil
}

// BuildContext recalls the top 20 matches and concatenates formatted
// lines until adding another would exceed maxTokens.
func (m *AgentMemory) BuildContext(ctx context.Context, q string, maxTokens int) (string, error) {
	opts := query.DefaultOptions(nowMillis())
	opts.Limit = 20

	hits, err := m.Recall(ctx, q, opts)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	tokens := 0
	for _, ep := range hits {
		line := formatContextLine(&ep.Episode)
		lineTokens := len(analyzer.Tokenize(line))
		if tokens > 0 && tokens+lineTokens > maxTokens {
			break
		}
		sb.WriteString(line)
		sb.WriteString("\n\n")
		tokens += lineTokens
	}
	return sb.String(), nil
}

func formatContextLine(ep *models.Episode) string {
	date := time.UnixMilli(ep.CreatedAt).UTC().Format("2006-01-02")
	return fmt.Sprintf("[%s] (%s)[%s]: %s", date, ep.Type, strings.Join(ep.Tags, ","), ep.Text)
}

// InjectOptions tunes injectContext.
type InjectOptions struct {
	ExcludeTags  []string
	PriorityTags []string
	RecentN      int
	MaxTokens    int
}

// InjectContext builds a compaction-survival context block: a relevance
// section from search plus a recency section straight off the in-memory
// doc map, deduped, tag-filtered/boosted, hydrated, truncated per
// episode and then as a whole.
func (m *AgentMemory) InjectContext(ctx context.Context, q string, opts InjectOptions) (string, error) {
	var out string
	err := m.withInit(ctx, "injectContext", func() error {
		result, err := m.injectContext(ctx, q, opts)
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	return out, err
}

func (m *AgentMemory) injectContext(ctx context.Context, q string, opts InjectOptions) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	recentN := opts.RecentN
	if recentN <= 0 {
		recentN = 10
	}

	now := nowMillis()
	searchOpts := query.DefaultOptions(now)
	searchOpts.Limit = 15
	searchResults := query.Search(m.index, q, m.synTable, searchOpts)

	type recentHit struct {
		id        string
		createdAt int64
	}
	recentHits := make([]recentHit, 0, len(m.index.Docs))
	for id, doc := range m.index.Docs {
		recentHits = append(recentHits, recentHit{id, doc.CreatedAt})
	}
	sort.Slice(recentHits, func(i, j int) bool {
		if recentHits[i].createdAt != recentHits[j].createdAt {
			return recentHits[i].createdAt > recentHits[j].createdAt
		}
		return recentHits[i].id < recentHits[j].id
	})
	if len(recentHits) > recentN {
		recentHits = recentHits[:recentN]
	}

	seen := make(map[string]bool, len(searchResults)+len(recentHits))
	relevantResults := make([]query.Result, 0, len(searchResults))
	for _, r := range searchResults {
		if excludedByTag(m.index.Docs[r.ID], opts.ExcludeTags) {
			continue
		}
		if !seen[r.ID] {
			seen[r.ID] = true
			relevantResults = append(relevantResults, r)
		}
	}
	recentResults := make([]query.Result, 0, len(recentHits))
	for _, h := range recentHits {
		if excludedByTag(m.index.Docs[h.id], opts.ExcludeTags) {
			continue
		}
		if !seen[h.id] {
			seen[h.id] = true
			recentResults = append(recentResults, query.Result{ID: h.id})
		}
	}

	relevant, err := m.hydrateBoosted(ctx, relevantResults, opts.PriorityTags)
	if err != nil {
		return "", err
	}
	recent, err := m.hydrateBoosted(ctx, recentResults, opts.PriorityTags)
	if err != nil {
		return "", err
	}
	sortByBoostedScore(relevant)

	var sb strings.Builder
	sb.WriteString("## Relevant Memories\n\n")
	for _, ep := range relevant {
		sb.WriteString(formatContextLine(&ep.Episode))
		sb.WriteString("\n\n")
	}
	sb.WriteString("## Recent Context\n\n")
	for _, ep := range recent {
		sb.WriteString(formatContextLine(&ep.Episode))
		sb.WriteString("\n\n")
	}

	return truncateAtNewline(sb.String(), maxTokens*35/10), nil
}

func excludedByTag(doc *query.DocEntry, exclude []string) bool {
	if doc == nil {
		return false
	}
	for _, tag := range exclude {
		for _, docTag := range doc.Tags {
			if docTag == tag {
				return true
			}
		}
	}
	return false
}

// hydrateBoosted hydrates results, truncates each body to 300 characters
// and applies the 1.5x priorityTags score boost.
func (m *AgentMemory) hydrateBoosted(ctx context.Context, results []query.Result, priorityTags []string) ([]*models.ScoredEpisode, error) {
	hydrated, err := m.hydrateResults(ctx, results)
	if err != nil {
		return nil, err
	}
	for _, ep := range hydrated {
		ep.Text = truncateAtNewline(ep.Text, 300)
		if hasAnyTag(ep.Tags, priorityTags) {
			ep.Score *= 1.5
		}
	}
	return hydrated, nil
}

func hasAnyTag(tags, priority []string) bool {
	for _, t := range tags {
		for _, p := range priority {
			if t == p {
				return true
			}
		}
	}
	return false
}

func sortByBoostedScore(eps []*models.ScoredEpisode) {
	sort.Slice(eps, func(i, j int) bool {
		if eps[i].Score != eps[j].Score {
			return eps[i].Score > eps[j].Score
		}
		return eps[i].ID < eps[j].ID
	})
}

// truncateAtNewline truncates s to at most limit characters/runes,
// backing up to the last newline in the cut region when one exists.
func truncateAtNewline(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	cut := string(runes[:limit])
	if idx := strings.LastIndexByte(cut, '\n'); idx != -1 {
		return cut[:idx]
	}
	return cut
}

// typePriority ranks episode types for postCompactionContext ordering;
// unlisted types sort last.
var typePriority = map[string]int{
	models.TypeCheckpoint:   0,
	models.TypeDecision:     1,
	models.TypeLesson:       2,
	models.TypeEvent:        3,
	models.TypeFact:         4,
	models.TypeTrade:        5,
	models.TypePosition:     6,
	models.TypeDocument:     7,
	models.TypeSummary:      8,
	models.TypeConversation: 9,
	models.TypeCustom:       10,
}

func priorityOf(epType string) int {
	if p, ok := typePriority[epType]; ok {
		return p
	}
	return 10
}

// PostCompactionOptions tunes postCompactionContext.
type PostCompactionOptions struct {
	HoursBack     int
	MaxCharacters int
}

// PostCompactionContext builds the checkpoint-restore context block: all
// in-memory docs within the lookback window, sorted by a fixed
// type-priority table and then newest-first, hydrated and truncated
// until the character budget is spent.
func (m *AgentMemory) PostCompactionContext(ctx context.Context, opts PostCompactionOptions) (string, error) {
	var out string
	err := m.withInit(ctx, "postCompactionContext", func() error {
		result, err := m.postCompactionContext(ctx, opts)
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	return out, err
}

func (m *AgentMemory) postCompactionContext(ctx context.Context, opts PostCompactionOptions) (string, error) {
	hoursBack := opts.HoursBack
	if hoursBack <= 0 {
		hoursBack = 24
	}
	maxChars := opts.MaxCharacters
	if maxChars <= 0 {
		maxChars = 8000
	}

	now := nowMillis()
	cutoff := now - int64(hoursBack)*3600*1000

	type candidate struct {
		id        string
		createdAt int64
		priority  int
	}
	var candidates []candidate
	for id, doc := range m.index.Docs {
		if doc.CreatedAt < cutoff {
			continue
		}
		candidates = append(candidates, candidate{id: id, createdAt: doc.CreatedAt, priority: priorityOf(doc.Type)})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].priority != candidates[j].priority {
			return candidates[i].priority < candidates[j].priority
		}
		return candidates[i].createdAt > candidates[j].createdAt
	})

	var sb strings.Builder
	for _, c := range candidates {
		ep, err := m.hydrateAndTouchNoPersist(ctx, c.id)
		if err != nil {
			return "", err
		}
		line := formatContextLine(&ep.Episode)
		line = truncateAtNewline(line, 300)
		if sb.Len()+len(line)+2 > maxChars {
			break
		}
		sb.WriteString(line)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

// hydrateAndTouchNoPersist loads and decrypts an episode without
// bumping or re-persisting access stats: postCompactionContext is a
// read-only snapshot, not a recall.
func (m *AgentMemory) hydrateAndTouchNoPersist(ctx context.Context, id string) (*models.ScoredEpisode, error) {
	ep, err := m.store.GetEpisode(ctx, id)
	if err != nil {
		return nil, err
	}
	if ep.Encrypted || ep.TagsEncrypted {
		key, err := m.requireKey()
		if err != nil {
			return nil, err
		}
		if err := crypto.DecryptEpisode(ep, key); err != nil {
			return nil, err
		}
	}
	return &models.ScoredEpisode{Episode: *ep}, nil
}
