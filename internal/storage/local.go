package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/engramhq/engram/internal/engramerr"
	"github.com/engramhq/engram/internal/models"
)

// LocalStore is the local filesystem tree implementation of Store and
// IndexStore: one pretty-printed JSON file per episode, and the tag/BM25
// indexes as single JSON files rewritten whole on each flush. There is no
// crash-atomicity stronger than temp-file-then-rename per file, matching
// the Non-goal against transactional guarantees.
type LocalStore struct {
	basePath string
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewLocalStore returns a LocalStore rooted at basePath. logger may be nil.
func NewLocalStore(basePath string, logger *slog.Logger) *LocalStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalStore{basePath: basePath, logger: logger}
}

func (s *LocalStore) episodesDir() string { return filepath.Join(s.basePath, "episodes") }
func (s *LocalStore) indexDir() string    { return filepath.Join(s.basePath, "index") }
func (s *LocalStore) anchorsDir() string  { return filepath.Join(s.basePath, "anchors") }
func (s *LocalStore) tagsPath() string    { return filepath.Join(s.indexDir(), "tags.json") }
func (s *LocalStore) bm25Path() string    { return filepath.Join(s.indexDir(), "bm25-index.json") }

func (s *LocalStore) episodePath(id string) string {
	return filepath.Join(s.episodesDir(), id+".json")
}

// Init creates the backing directories. Idempotent.
func (s *LocalStore) Init(ctx context.Context) error {
	for _, dir := range []string{s.episodesDir(), s.indexDir(), s.anchorsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return engramerr.Wrapf(engramerr.ErrTransport, "create %s: %v", dir, err)
		}
	}
	return nil
}

// writeJSONAtomic writes v as pretty JSON to path via a temp file + rename,
// creating path's parent directory first if it does not exist.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *LocalStore) SaveEpisode(ctx context.Context, ep *models.Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeJSONAtomic(s.episodePath(ep.ID), ep); err != nil {
		return engramerr.Wrapf(engramerr.ErrTransport, "save episode %s: %v", ep.ID, err)
	}
	return nil
}

func (s *LocalStore) GetEpisode(ctx context.Context, id string) (*models.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.episodePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, engramerr.Wrapf(engramerr.ErrNotFound, "%s", id)
		}
		return nil, engramerr.Wrapf(engramerr.ErrTransport, "read episode %s: %v", id, err)
	}
	var ep models.Episode
	if err := json.Unmarshal(data, &ep); err != nil {
		return nil, engramerr.Wrapf(engramerr.ErrMalformed, "episode %s: %v", id, err)
	}
	return &ep, nil
}

func (s *LocalStore) DeleteEpisode(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.episodePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, engramerr.Wrapf(engramerr.ErrTransport, "delete episode %s: %v", id, err)
	}
	return true, nil
}

func (s *LocalStore) GetAllEpisodes(ctx context.Context) ([]*models.Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.episodesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, engramerr.Wrapf(engramerr.ErrTransport, "list episodes: %v", err)
	}
	var out []*models.Episode
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.episodesDir(), entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable episode file", "path", path, "error", err)
			continue
		}
		var ep models.Episode
		if err := json.Unmarshal(data, &ep); err != nil {
			// A single corrupt episode must not poison the whole store.
			s.logger.Warn("skipping malformed episode file", "path", path, "error", err)
			continue
		}
		out = append(out, &ep)
	}
	return out, nil
}

func (s *LocalStore) ListEpisodeIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.episodesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, engramerr.Wrapf(engramerr.ErrTransport, "list episode ids: %v", err)
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		ids = append(ids, entry.Name()[:len(entry.Name())-len(".json")])
	}
	return ids, nil
}

func (s *LocalStore) GetEpisodesSince(ctx context.Context, t int64) ([]*models.Episode, error) {
	all, err := s.GetAllEpisodes(ctx)
	if err != nil {
		return nil, err
	}
	var out []*models.Episode
	for _, ep := range all {
		if ep.CreatedAt > t {
			out = append(out, ep)
		}
	}
	return out, nil
}

func (s *LocalStore) loadTags() (map[string][]string, error) {
	data, err := os.ReadFile(s.tagsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]string{}, nil
		}
		return nil, err
	}
	tags := map[string][]string{}
	if err := json.Unmarshal(data, &tags); err != nil {
		// Malformed tag index: treat as empty rather than poisoning startup.
		s.logger.Warn("malformed tag index, starting empty", "error", err)
		return map[string][]string{}, nil
	}
	return tags, nil
}

func (s *LocalStore) AddToTagIndex(ctx context.Context, ep *models.Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tags, err := s.loadTags()
	if err != nil {
		return engramerr.Wrapf(engramerr.ErrTransport, "load tag index: %v", err)
	}
	for _, tag := range ep.Tags {
		ids := tags[tag]
		found := false
		for _, id := range ids {
			if id == ep.ID {
				found = true
				break
			}
		}
		if !found {
			tags[tag] = append(ids, ep.ID)
		}
	}
	if err := writeJSONAtomic(s.tagsPath(), tags); err != nil {
		return engramerr.Wrapf(engramerr.ErrTransport, "save tag index: %v", err)
	}
	return nil
}

func (s *LocalStore) RemoveFromTagIndex(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tags, err := s.loadTags()
	if err != nil {
		return engramerr.Wrapf(engramerr.ErrTransport, "load tag index: %v", err)
	}
	changed := false
	for tag, ids := range tags {
		filtered := make([]string, 0, len(ids))
		for _, existing := range ids {
			if existing != id {
				filtered = append(filtered, existing)
			} else {
				changed = true
			}
		}
		if len(filtered) == 0 {
			delete(tags, tag)
		} else {
			tags[tag] = filtered
		}
	}
	if !changed {
		return nil
	}
	if err := writeJSONAtomic(s.tagsPath(), tags); err != nil {
		return engramerr.Wrapf(engramerr.ErrTransport, "save tag index: %v", err)
	}
	return nil
}

func (s *LocalStore) GetByTag(ctx context.Context, tag string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tags, err := s.loadTags()
	if err != nil {
		return nil, engramerr.Wrapf(engramerr.ErrTransport, "load tag index: %v", err)
	}
	return tags[tag], nil
}

func (s *LocalStore) GetStats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.episodesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return Stats{Path: s.basePath}, nil
		}
		return Stats{}, engramerr.Wrapf(engramerr.ErrTransport, "stat episodes: %v", err)
	}
	var count int
	var bytes int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		count++
		bytes += info.Size()
	}
	return Stats{EpisodeCount: count, BytesUsed: bytes, Path: s.basePath}, nil
}

// LoadBM25Index satisfies IndexStore. Returns (nil, nil) if absent or
// malformed — a corrupt persisted index forces a full rebuild rather than
// a hard failure.
func (s *LocalStore) LoadBM25Index(ctx context.Context) (*models.PersistedIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.bm25Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, engramerr.Wrapf(engramerr.ErrTransport, "read bm25 index: %v", err)
	}
	var idx models.PersistedIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		s.logger.Warn("malformed bm25 index, treating as absent", "error", err)
		return nil, nil
	}
	return &idx, nil
}

func (s *LocalStore) SaveBM25Index(ctx context.Context, idx *models.PersistedIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeJSONAtomic(s.bm25Path(), idx); err != nil {
		return engramerr.Wrapf(engramerr.ErrTransport, "save bm25 index: %v", err)
	}
	return nil
}

// SaveSnapshot writes a snapshot record under anchors/snapshot-<unixMs>.json.
func (s *LocalStore) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := filepath.Join(s.anchorsDir(), fmt.Sprintf("snapshot-%d.json", snap.Timestamp))
	if err := writeJSONAtomic(path, snap); err != nil {
		return engramerr.Wrapf(engramerr.ErrTransport, "save snapshot: %v", err)
	}
	return nil
}

// LoadLatestSnapshot returns the most recently timestamped anchor, or
// (nil, nil) if none exists yet.
func (s *LocalStore) LoadLatestSnapshot(ctx context.Context) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshots, err := s.listSnapshots()
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	return snapshots[len(snapshots)-1], nil
}

// LoadSnapshotByRoot scans the anchors directory for a snapshot whose
// root matches, newest first. Returns engramerr.ErrNotFound if none do.
func (s *LocalStore) LoadSnapshotByRoot(ctx context.Context, root string) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshots, err := s.listSnapshots()
	if err != nil {
		return nil, err
	}
	for i := len(snapshots) - 1; i >= 0; i-- {
		if snapshots[i].Root == root {
			return snapshots[i], nil
		}
	}
	return nil, engramerr.Wrapf(engramerr.ErrNotFound, "no snapshot with root %s", root)
}

func (s *LocalStore) listSnapshots() ([]*models.Snapshot, error) {
	entries, err := os.ReadDir(s.anchorsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, engramerr.Wrapf(engramerr.ErrTransport, "list anchors: %v", err)
	}
	var out []*models.Snapshot
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.anchorsDir(), entry.Name()))
		if err != nil {
			continue
		}
		var snap models.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			s.logger.Warn("malformed snapshot file, skipping", "file", entry.Name(), "error", err)
			continue
		}
		out = append(out, &snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// KeyPath and SaltPath expose the well-known key-material file locations
// for the crypto package's key resolution chain.
func (s *LocalStore) KeyPath() string  { return filepath.Join(s.basePath, "engram.key") }
func (s *LocalStore) SaltPath() string { return filepath.Join(s.basePath, "engram.salt") }
func (s *LocalStore) SynonymsPath() string {
	return filepath.Join(s.basePath, "synonyms.json")
}

var _ Store = (*LocalStore)(nil)
var _ IndexStore = (*LocalStore)(nil)
var _ SnapshotStore = (*LocalStore)(nil)
