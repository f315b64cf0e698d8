package query

import (
	"context"
	"errors"

	"github.com/engramhq/engram/internal/engramerr"
	"github.com/engramhq/engram/internal/models"
	"github.com/engramhq/engram/internal/storage"
)

// SupersessionChain back-walks from rootId via supersedes[0] (first
// parent only, depth-first) to the earliest ancestor, then forward-walks
// via supersededBy, returning the chain oldest to newest. At each step the
// forward walk follows the first successor that is unvisited and still
// stored; further successors of a fan-out are not included, so the result
// is always a single linear path. A visited set guards against cycles: a
// revisit stops the walk rather than looping.
func SupersessionChain(ctx context.Context, store storage.Store, rootID string) ([]*models.Episode, error) {
	root, err := store.GetEpisode(ctx, rootID)
	if err != nil {
		return nil, err
	}

	earliest := root
	visited := map[string]bool{root.ID: true}
	for len(earliest.Supersedes) > 0 {
		parentID := earliest.Supersedes[0]
		if visited[parentID] {
			break
		}
		parent, err := store.GetEpisode(ctx, parentID)
		if err != nil {
			if errors.Is(err, engramerr.ErrNotFound) {
				break
			}
			return nil, err
		}
		visited[parentID] = true
		earliest = parent
	}

	chain := []*models.Episode{earliest}
	visited = map[string]bool{earliest.ID: true}
	current := earliest
	for len(current.SupersededBy) > 0 {
		var next *models.Episode
		for _, nextID := range current.SupersededBy {
			if visited[nextID] {
				continue
			}
			candidate, err := store.GetEpisode(ctx, nextID)
			if err != nil {
				if errors.Is(err, engramerr.ErrNotFound) {
					continue
				}
				return nil, err
			}
			next = candidate
			break
		}
		if next == nil {
			break
		}
		visited[next.ID] = true
		chain = append(chain, next)
		current = next
	}

	return chain, nil
}

// CreatesCycle reports whether linking oldID -> newID (oldID.supersededBy
// gains newID) would close a cycle: a self-link, or oldID already
// transitively superseding newID, i.e. oldID is reachable by walking
// newID's supersededBy closure forward. A revisit during the walk stops
// that branch rather than looping, matching SupersessionChain's guard.
func CreatesCycle(ctx context.Context, store storage.Store, oldID, newID string) (bool, error) {
	if oldID == newID {
		return true, nil
	}

	visited := map[string]bool{newID: true}
	queue := []string{newID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		ep, err := store.GetEpisode(ctx, id)
		if err != nil {
			if errors.Is(err, engramerr.ErrNotFound) {
				continue
			}
			return false, err
		}
		for _, next := range ep.SupersededBy {
			if next == oldID {
				return true, nil
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return false, nil
}
