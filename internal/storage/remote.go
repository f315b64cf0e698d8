package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/engramhq/engram/internal/engramerr"
	"github.com/engramhq/engram/internal/models"
)

// RemoteStore is the remote key-value adapter: a thin HTTP client
// speaking a flat, operation-named command envelope over plain
// HTTP/JSON instead of a query language.
type RemoteStore struct {
	endpoint   string
	httpClient *http.Client
}

// NewRemoteStore returns a RemoteStore pointed at endpoint. If endpoint
// is empty, ENGRAM_STORAGE_URL is consulted, then localhost:8390.
func NewRemoteStore(endpoint string) *RemoteStore {
	if endpoint == "" {
		endpoint = os.Getenv("ENGRAM_STORAGE_URL")
	}
	if endpoint == "" {
		endpoint = "http://localhost:8390/command"
	}
	timeout := 30 * time.Second
	if t := os.Getenv("ENGRAM_STORAGE_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}
	return &RemoteStore{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type commandRequest struct {
	Op   string `json:"op"`
	Args any    `json:"args,omitempty"`
}

type commandResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// execute sends one command and unmarshals its result into out (which may
// be nil for ops with no return value).
func (r *RemoteStore) execute(ctx context.Context, op string, args any, out any) error {
	body, err := json.Marshal(commandRequest{Op: op, Args: args})
	if err != nil {
		return engramerr.Wrapf(engramerr.ErrUsage, "marshal %s args: %v", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return engramerr.Wrapf(engramerr.ErrTransport, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return engramerr.Wrapf(engramerr.ErrTransport, "%s: %v", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return engramerr.Wrapf(engramerr.ErrTransport, "read response: %v", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return engramerr.Wrapf(engramerr.ErrNotFound, "%s: %v", op, args)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return engramerr.Wrapf(engramerr.ErrTransport, "%s: server returned %s: %s", op, resp.Status, string(respBody))
	}

	var cmdResp commandResponse
	if err := json.Unmarshal(respBody, &cmdResp); err != nil {
		return engramerr.Wrapf(engramerr.ErrMalformed, "unmarshal response: %v", err)
	}
	if cmdResp.Error != "" {
		return engramerr.Wrapf(engramerr.ErrTransport, "%s", cmdResp.Error)
	}
	if out != nil && len(cmdResp.Result) > 0 {
		if err := json.Unmarshal(cmdResp.Result, out); err != nil {
			return engramerr.Wrapf(engramerr.ErrMalformed, "unmarshal result: %v", err)
		}
	}
	return nil
}

func (r *RemoteStore) Init(ctx context.Context) error {
	return r.execute(ctx, "init", nil, nil)
}

func (r *RemoteStore) SaveEpisode(ctx context.Context, ep *models.Episode) error {
	return r.execute(ctx, "saveEpisode", map[string]any{"episode": ep}, nil)
}

func (r *RemoteStore) GetEpisode(ctx context.Context, id string) (*models.Episode, error) {
	var ep models.Episode
	if err := r.execute(ctx, "getEpisode", map[string]any{"id": id}, &ep); err != nil {
		return nil, err
	}
	return &ep, nil
}

func (r *RemoteStore) DeleteEpisode(ctx context.Context, id string) (bool, error) {
	var deleted bool
	if err := r.execute(ctx, "deleteEpisode", map[string]any{"id": id}, &deleted); err != nil {
		return false, err
	}
	return deleted, nil
}

func (r *RemoteStore) GetAllEpisodes(ctx context.Context) ([]*models.Episode, error) {
	var eps []*models.Episode
	if err := r.execute(ctx, "getAllEpisodes", nil, &eps); err != nil {
		return nil, err
	}
	return eps, nil
}

func (r *RemoteStore) ListEpisodeIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.execute(ctx, "listEpisodeIds", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *RemoteStore) GetEpisodesSince(ctx context.Context, t int64) ([]*models.Episode, error) {
	var eps []*models.Episode
	if err := r.execute(ctx, "getEpisodesSince", map[string]any{"since": t}, &eps); err != nil {
		return nil, err
	}
	return eps, nil
}

func (r *RemoteStore) AddToTagIndex(ctx context.Context, ep *models.Episode) error {
	return r.execute(ctx, "addToTagIndex", map[string]any{"episode": ep}, nil)
}

func (r *RemoteStore) RemoveFromTagIndex(ctx context.Context, id string) error {
	return r.execute(ctx, "removeFromTagIndex", map[string]any{"id": id}, nil)
}

func (r *RemoteStore) GetByTag(ctx context.Context, tag string) ([]string, error) {
	var ids []string
	if err := r.execute(ctx, "getByTag", map[string]any{"tag": tag}, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *RemoteStore) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := r.execute(ctx, "getStats", nil, &stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func (r *RemoteStore) LoadBM25Index(ctx context.Context) (*models.PersistedIndex, error) {
	var idx *models.PersistedIndex
	if err := r.execute(ctx, "loadBM25Index", nil, &idx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (r *RemoteStore) SaveBM25Index(ctx context.Context, idx *models.PersistedIndex) error {
	return r.execute(ctx, "saveBM25Index", map[string]any{"index": idx}, nil)
}

func (r *RemoteStore) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	return r.execute(ctx, "saveSnapshot", map[string]any{"snapshot": snap}, nil)
}

func (r *RemoteStore) LoadLatestSnapshot(ctx context.Context) (*models.Snapshot, error) {
	var snap *models.Snapshot
	if err := r.execute(ctx, "loadLatestSnapshot", nil, &snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (r *RemoteStore) LoadSnapshotByRoot(ctx context.Context, root string) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := r.execute(ctx, "loadSnapshotByRoot", map[string]any{"root": root}, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

var _ Store = (*RemoteStore)(nil)
var _ IndexStore = (*RemoteStore)(nil)
var _ SnapshotStore = (*RemoteStore)(nil)
