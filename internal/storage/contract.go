// Package storage defines the storage contract: abstract
// episode CRUD, a tag index, an optional BM25 index capability, and the
// two concrete implementations the core may be pointed at — a local file
// tree and a remote key-value adapter speaking a plain command protocol.
// The core must never assume one implementation over the other.
package storage

import (
	"context"

	"github.com/engramhq/engram/internal/models"
)

// Store is the required surface every backend implements.
type Store interface {
	// Init creates any backing containers. Idempotent.
	Init(ctx context.Context) error

	// SaveEpisode overwrites by id. Last-writer-wins.
	SaveEpisode(ctx context.Context, ep *models.Episode) error

	// GetEpisode returns engramerr.ErrNotFound (wrapped) if absent.
	GetEpisode(ctx context.Context, id string) (*models.Episode, error)

	// DeleteEpisode reports true on removal, false if absent.
	DeleteEpisode(ctx context.Context, id string) (bool, error)

	// GetAllEpisodes may be eagerly materialized; order is unspecified.
	GetAllEpisodes(ctx context.Context) ([]*models.Episode, error)

	// ListEpisodeIDs is cheap: no episode bodies are read.
	ListEpisodeIDs(ctx context.Context) ([]string, error)

	// GetEpisodesSince returns all episodes with CreatedAt > t.
	GetEpisodesSince(ctx context.Context, t int64) ([]*models.Episode, error)

	AddToTagIndex(ctx context.Context, ep *models.Episode) error
	RemoveFromTagIndex(ctx context.Context, id string) error
	GetByTag(ctx context.Context, tag string) ([]string, error)

	GetStats(ctx context.Context) (Stats, error)
}

// IndexStore is the optional BM25-index persistence capability. Backends
// that don't implement it force a full rebuild on every orchestrator
// init — checked with a type assertion rather than duck-typed method
// presence, per the typed-capability re-architecture.
type IndexStore interface {
	// LoadBM25Index returns (nil, nil) if no persisted index exists.
	LoadBM25Index(ctx context.Context) (*models.PersistedIndex, error)
	SaveBM25Index(ctx context.Context, idx *models.PersistedIndex) error
}

// SnapshotStore is the optional Merkle-anchor persistence capability
// backing the snapshot/verify CLI commands. Backends without it can
// still compute a snapshot in memory; they just can't anchor it.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *models.Snapshot) error
	LoadLatestSnapshot(ctx context.Context) (*models.Snapshot, error)
	LoadSnapshotByRoot(ctx context.Context, root string) (*models.Snapshot, error)
}

// Stats is the counts report returned by GetStats.
type Stats struct {
	EpisodeCount int    `json:"episodeCount"`
	BytesUsed    int64  `json:"bytesUsed"`
	Path         string `json:"path"`
}
