// Package remoteserver is a reference implementation of the command
// protocol RemoteStore speaks, backed by an in-memory map. It exists
// for integration tests of RemoteStore and as a standalone binary
// (cmd/engram-storage-server) for manually exercising the remote
// adapter without a real networked backend.
package remoteserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/engramhq/engram/internal/models"
)

var (
	errNotFound  = errors.New("not found")
	errUnknownOp = errors.New("unknown op")
)

// Server implements the command protocol over an in-memory map.
type Server struct {
	mu        sync.Mutex
	episodes  map[string]*models.Episode
	tags      map[string][]string
	index     *models.PersistedIndex
	snapshots []*models.Snapshot
	logger    *slog.Logger
}

// New returns an empty Server.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		episodes: make(map[string]*models.Episode),
		tags:     make(map[string][]string),
		logger:   logger,
	}
}

type commandRequest struct {
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args"`
}

type commandResponse struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Handler returns the http.Handler exposing POST /command.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/command", s.handleCommand)
	return loggingMiddleware(s.logger, mux)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.dispatch(req.Op, req.Args)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	writeResult(w, result)
}

// loggingMiddleware logs each request's method, path and duration: at Warn
// level when it exceeds slowRequestThreshold, at Debug level otherwise.
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	const slowRequestThreshold = 100 * time.Millisecond
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		elapsed := time.Since(start)
		if elapsed > slowRequestThreshold {
			logger.Warn("slow command", "method", r.Method, "path", r.URL.Path, "elapsed", elapsed)
		} else {
			logger.Debug("command", "method", r.Method, "path", r.URL.Path, "elapsed", elapsed)
		}
	})
}

func (s *Server) dispatch(op string, rawArgs json.RawMessage) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch op {
	case "init":
		return nil, nil

	case "saveEpisode":
		var args struct{ Episode *models.Episode }
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		s.episodes[args.Episode.ID] = args.Episode
		return nil, nil

	case "getEpisode":
		var args struct{ ID string }
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		ep, ok := s.episodes[args.ID]
		if !ok {
			return nil, errNotFound
		}
		return ep, nil

	case "deleteEpisode":
		var args struct{ ID string }
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		_, ok := s.episodes[args.ID]
		delete(s.episodes, args.ID)
		return ok, nil

	case "getAllEpisodes":
		out := make([]*models.Episode, 0, len(s.episodes))
		for _, ep := range s.episodes {
			out = append(out, ep)
		}
		return out, nil

	case "listEpisodeIds":
		ids := make([]string, 0, len(s.episodes))
		for id := range s.episodes {
			ids = append(ids, id)
		}
		return ids, nil

	case "getEpisodesSince":
		var args struct{ Since int64 }
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		var out []*models.Episode
		for _, ep := range s.episodes {
			if ep.CreatedAt > args.Since {
				out = append(out, ep)
			}
		}
		return out, nil

	case "addToTagIndex":
		var args struct{ Episode *models.Episode }
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		for _, tag := range args.Episode.Tags {
			s.tags[tag] = appendUnique(s.tags[tag], args.Episode.ID)
		}
		return nil, nil

	case "removeFromTagIndex":
		var args struct{ ID string }
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		for tag, ids := range s.tags {
			s.tags[tag] = removeString(ids, args.ID)
			if len(s.tags[tag]) == 0 {
				delete(s.tags, tag)
			}
		}
		return nil, nil

	case "getByTag":
		var args struct{ Tag string }
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		return s.tags[args.Tag], nil

	case "getStats":
		return map[string]any{
			"episodeCount": len(s.episodes),
			"bytesUsed":    0,
			"path":         "memory",
		}, nil

	case "loadBM25Index":
		return s.index, nil

	case "saveBM25Index":
		var args struct{ Index *models.PersistedIndex }
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		s.index = args.Index
		return nil, nil

	case "saveSnapshot":
		var args struct{ Snapshot *models.Snapshot }
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		s.snapshots = append(s.snapshots, args.Snapshot)
		return nil, nil

	case "loadLatestSnapshot":
		if len(s.snapshots) == 0 {
			return nil, nil
		}
		return s.snapshots[len(s.snapshots)-1], nil

	case "loadSnapshotByRoot":
		var args struct{ Root string }
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		for i := len(s.snapshots) - 1; i >= 0; i-- {
			if s.snapshots[i].Root == args.Root {
				return s.snapshots[i], nil
			}
		}
		return nil, errNotFound

	default:
		return nil, errUnknownOp
	}
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeString(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(commandResponse{Result: result})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(commandResponse{Error: msg})
}
