// Package agent implements the orchestrator: init
// (incremental vs full rebuild), remember/chunk/supersede, recall (lazy
// hydration, access stats), stats, prune, temporal, context building and
// compaction checkpoints. AgentMemory treats its own methods as mutually
// excluding under a single cooperative lock: no operation reads or
// writes the index concurrently with another.
package agent

import (
	"context"
	"log/slog"
	"sync"

	"github.com/engramhq/engram/internal/crypto"
	"github.com/engramhq/engram/internal/engramerr"
	"github.com/engramhq/engram/internal/metrics"
	"github.com/engramhq/engram/internal/models"
	"github.com/engramhq/engram/internal/query"
	"github.com/engramhq/engram/internal/storage"
	"github.com/engramhq/engram/internal/synonyms"
)

// Options configures a new AgentMemory.
type Options struct {
	AgentID      string
	Logger       *slog.Logger
	Synonyms     *synonyms.Table // nil creates a fresh default table
	SynonymFiles []string        // additional overlay files, loaded in order

	EncryptionEnabled bool
	KeySource         crypto.KeySource
}

// AgentMemory is the single entry point the CLI and embedders use.
type AgentMemory struct {
	mu sync.Mutex

	store    storage.Store
	synTable *synonyms.Table
	index    *query.Index
	metrics  *metrics.Collector
	logger   *slog.Logger

	agentID string

	encryptionEnabled bool
	keySource         crypto.KeySource
	encKey            [32]byte
	keyResolved       bool

	synonymFiles []string
	initialized  bool
}

// New constructs an AgentMemory over store. Initialization happens
// lazily on the first operation.
func New(store storage.Store, opts Options) *AgentMemory {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	synTable := opts.Synonyms
	if synTable == nil {
		synTable = synonyms.New()
	}
	agentID := opts.AgentID
	if agentID == "" {
		agentID = "default"
	}
	return &AgentMemory{
		store:             store,
		synTable:          synTable,
		index:             query.New(),
		metrics:           metrics.NewCollector(),
		logger:            opts.Logger,
		agentID:           agentID,
		encryptionEnabled: opts.EncryptionEnabled,
		keySource:         opts.KeySource,
		synonymFiles:      opts.SynonymFiles,
	}
}

// Metrics exposes the runtime stats collector for the stats CLI command.
func (m *AgentMemory) Metrics() *metrics.Collector { return m.metrics }

// ensureInit performs the lazy, incremental-or-full-rebuild
// initialization. Callers must hold m.mu.
func (m *AgentMemory) ensureInit(ctx context.Context) error {
	if m.initialized {
		return nil
	}

	if m.encryptionEnabled {
		key, err := crypto.Resolve(m.keySource)
		if err != nil {
			return err
		}
		m.encKey = key
		m.keyResolved = true
	}

	for _, path := range m.synonymFiles {
		if path == "" {
			continue
		}
		if err := m.synTable.LoadFile(path); err != nil {
			m.logger.Warn("failed to load synonym overlay", "path", path, "error", err)
		}
	}

	if err := m.store.Init(ctx); err != nil {
		return err
	}

	if err := m.loadOrRebuildIndex(ctx); err != nil {
		return err
	}

	m.initialized = true
	return nil
}

// loadOrRebuildIndex implements the incremental-vs-full-rebuild policy.
func (m *AgentMemory) loadOrRebuildIndex(ctx context.Context) error {
	indexStore, canPersist := m.store.(storage.IndexStore)

	var persisted *query.IndexAcceptance
	if canPersist {
		acceptance, err := m.tryAcceptPersisted(ctx, indexStore)
		if err != nil {
			return err
		}
		persisted = acceptance
	}

	if persisted == nil {
		all, err := m.store.GetAllEpisodes(ctx)
		if err != nil {
			return err
		}
		if err := m.decryptForIndexing(all); err != nil {
			return err
		}
		m.index.Rebuild(all)
	} else {
		all, err := m.store.GetAllEpisodes(ctx)
		if err != nil {
			return err
		}
		if err := m.decryptForIndexing(all); err != nil {
			return err
		}
		byID := make(map[string]bool, len(persisted.PersistedIDs))
		for _, id := range persisted.PersistedIDs {
			byID[id] = true
		}
		for _, ep := range all {
			if byID[ep.ID] {
				m.index.HydrateDoc(ep)
			} else {
				m.index.Add(ep)
			}
		}
	}

	if canPersist {
		if err := indexStore.SaveBM25Index(ctx, m.index.ToPersisted()); err != nil {
			m.logger.Warn("failed to persist bm25 index after init", "error", err)
		}
	}
	return nil
}

// decryptForIndexing decrypts each encrypted episode in place so the
// index builds tf/dl from real tokens rather than the nil Tokens field
// EncryptEpisode leaves on disk. The decrypted copies are never written
// back to the store; they exist only long enough to be indexed.
func (m *AgentMemory) decryptForIndexing(eps []*models.Episode) error {
	if !m.encryptionEnabled {
		return nil
	}
	for _, ep := range eps {
		if !ep.Encrypted && !ep.TagsEncrypted {
			continue
		}
		key, err := m.requireKey()
		if err != nil {
			return err
		}
		if err := crypto.DecryptEpisode(ep, key); err != nil {
			return err
		}
	}
	return nil
}

// tryAcceptPersisted loads the persisted index and, if its stats are
// consistent with the on-disk episode set within tolerance, restores it
// into m.index and returns the set of ids it already accounts for.
// Returns (nil, nil) when no persisted index is usable and a full
// rebuild is required instead.
func (m *AgentMemory) tryAcceptPersisted(ctx context.Context, indexStore storage.IndexStore) (*query.IndexAcceptance, error) {
	persisted, err := indexStore.LoadBM25Index(ctx)
	if err != nil {
		return nil, err
	}
	if persisted == nil {
		return nil, nil
	}

	allIDs, err := m.store.ListEpisodeIDs(ctx)
	if err != nil {
		return nil, err
	}
	newSince, err := m.store.GetEpisodesSince(ctx, persisted.LastIndexedTimestamp)
	if err != nil {
		return nil, err
	}

	tolerance := len(newSince)
	lower, upper := persisted.TotalDocs, persisted.TotalDocs+tolerance
	if len(allIDs) < lower || len(allIDs) > upper {
		return nil, nil
	}

	m.index.RestoreFromIndex(persisted)
	persistedIDs := make([]string, 0, len(persisted.DocLengths))
	for id := range persisted.DocLengths {
		persistedIDs = append(persistedIDs, id)
	}
	return &query.IndexAcceptance{PersistedIDs: persistedIDs}, nil
}

// withInit runs fn with initialization guaranteed and the top-level
// mutex held, matching the single-writer cooperative model, and records
// its wall-clock time under name in the runtime stats collector.
func (m *AgentMemory) withInit(ctx context.Context, name string, fn func() error) error {
	return m.metrics.Track(name, func() error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if err := m.ensureInit(ctx); err != nil {
			return err
		}
		return fn()
	})
}

// requireKey returns the resolved encryption key, failing with
// ErrPolicy if encryption was never enabled.
func (m *AgentMemory) requireKey() ([32]byte, error) {
	if !m.encryptionEnabled || !m.keyResolved {
		return [32]byte{}, engramerr.Wrap(engramerr.ErrPolicy, "encryption is not enabled for this store")
	}
	return m.encKey, nil
}
