package agent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/engramhq/engram/internal/analyzer"
	"github.com/engramhq/engram/internal/crypto"
	"github.com/engramhq/engram/internal/engramerr"
	"github.com/engramhq/engram/internal/models"
	"github.com/engramhq/engram/internal/query"
	"github.com/engramhq/engram/internal/storage"
	"github.com/google/uuid"
)

// RememberOptions tunes how text is chunked, tagged and linked on store.
type RememberOptions struct {
	Type       string
	Tags       []string
	Importance *float64
	Metadata   map[string]any
	Supersedes []string

	ChunkMode analyzer.ChunkMode
	MaxTokens int
	Overlap   int
}

// DefaultRememberOptions returns the sentence-chunking defaults.
func DefaultRememberOptions() RememberOptions {
	return RememberOptions{
		ChunkMode: analyzer.ChunkSentence,
		MaxTokens: 200,
	}
}

// Remember chunks text, stores one episode per chunk sharing a sourceId,
// links the first chunk to any superseded episodes, and returns the
// plaintext episodes in chunk order.
func (m *AgentMemory) Remember(ctx context.Context, text string, opts RememberOptions) ([]*models.Episode, error) {
	var out []*models.Episode
	err := m.withInit(ctx, "remember", func() error {
		result, err := m.remember(ctx, text, opts)
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	return out, err
}

func (m *AgentMemory) remember(ctx context.Context, text string, opts RememberOptions) ([]*models.Episode, error) {
	chunkMode := opts.ChunkMode
	if chunkMode == "" {
		chunkMode = analyzer.ChunkSentence
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 200
	}

	chunks := analyzer.Chunk(text, chunkMode, maxTokens, opts.Overlap)
	if len(chunks) == 0 {
		return nil, engramerr.Wrap(engramerr.ErrUsage, "nothing to remember: empty text")
	}

	epType := opts.Type
	if epType == "" {
		epType = models.TypeFact
	}
	importance := models.DefaultImportance
	if opts.Importance != nil {
		importance = *opts.Importance
	}

	sourceSum := sha256.Sum256([]byte(text))
	sourceID := hex.EncodeToString(sourceSum[:])[:12]
	now := time.Now().UnixMilli()

	indexStore, canPersist := m.store.(storage.IndexStore)

	episodes := make([]*models.Episode, 0, len(chunks))
	for i, chunkText := range chunks {
		ep := &models.Episode{
			ID:             newEpisodeID(m.agentID, now),
			Text:           chunkText,
			Type:           epType,
			Tags:           append([]string(nil), opts.Tags...),
			Importance:     importance,
			AgentID:        m.agentID,
			Metadata:       opts.Metadata,
			ChunkIndex:     i,
			TotalChunks:    len(chunks),
			SourceID:       sourceID,
			CreatedAt:      now,
			LastAccessedAt: now,
			Tokens:         analyzer.Tokenize(chunkText),
		}
		if i == 0 {
			ep.Supersedes = opts.Supersedes
		}

		m.index.Add(ep)
		episodes = append(episodes, ep)

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
		if err := m.store.AddToTagIndex(ctx, ep); err != nil {
			return nil, err
		}
	}

	newestID := episodes[0].ID
	for _, oldID := range opts.Supersedes {
		cycle, err := query.CreatesCycle(ctx, m.store, oldID, newestID)
		if err != nil {
			return nil, err
		}
		if cycle {
			m.logger.Warn("supersedes target rejected: would create a cycle", "id", oldID)
			continue
		}
		if err := m.linkSupersession(ctx, oldID, newestID); err != nil {
			if !errors.Is(err, engramerr.ErrNotFound) {
				return nil, err
			}
			m.logger.Warn("supersedes target not found", "id", oldID)
		}
	}

	if canPersist {
		if err := indexStore.SaveBM25Index(ctx, m.index.ToPersisted()); err != nil {
			m.logger.Warn("failed to persist bm25 index after remember", "error", err)
		}
	}

	return episodes, nil
}

// linkSupersession appends newID to oldID's supersededBy list, both on
// disk and in the in-memory index. The stored episode's text is left
// untouched, ciphertext or not: supersededBy is a cleartext sideband.
func (m *AgentMemory) linkSupersession(ctx context.Context, oldID, newID string) error {
	old, err := m.store.GetEpisode(ctx, oldID)
	if err != nil {
		return err
	}
	old.AddSupersededBy(newID)
	if err := m.store.SaveEpisode(ctx, old); err != nil {
		return err
	}
	if entry, ok := m.index.Docs[oldID]; ok {
		entry.SupersededBy = old.SupersededBy
	}
	return nil
}

// newEpisodeID produces ep_<agentId>_<unixMilli>_<8 lowercase hex>, the
// random suffix drawn from the same uuid source the rest of the corpus
// uses for short ids.
func newEpisodeID(agentID string, unixMilli int64) string {
	short := uuid.New().String()[:8]
	return "ep_" + agentID + "_" + strconv.FormatInt(unixMilli, 10) + "_" + short
}
