// Package synonyms implements bidirectional equivalence-class lookup for
// query expansion: a synonym group is a set of phrases
// treated as mutually equivalent, and expand(query) walks the lowercased
// query for any phrase that occurs in it.
package synonyms

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/coregx/ahocorasick"
)

// Expansion is the result of expand(query): the original tokens and the
// additional words contributed by matched synonym groups.
type Expansion struct {
	Original []string
	Expanded []string
}

// Table holds the merged synonym groups and a compiled substring matcher
// over the group keys. It is injected into the orchestrator rather than
// held as a package-level singleton so each store can carry its own
// vocabulary and tests can construct isolated tables.
type Table struct {
	mu      sync.RWMutex
	groups  [][]string          // raw groups, in load order
	lookup  map[string][]string // lowercased phrase -> peer phrases
	matcher *ahocorasick.Automaton
	keys    []string // compiled matcher patterns, sorted by descending length
}

// New returns a Table seeded with the bundled default groups (layer 1).
func New() *Table {
	t := &Table{lookup: make(map[string][]string)}
	t.merge(defaultGroups)
	return t
}

// LoadFile loads a synonym file per the documented format:
// {"groups": [["a","b"], ...]} or a bare top-level array [["a","b"], ...].
// Groups with fewer than 2 entries are ignored. Missing files are not an
// error: a store without an overlay file simply keeps what it has.
func (t *Table) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	groups, err := parseSynonymFile(data)
	if err != nil {
		return err
	}
	t.merge(groups)
	return nil
}

// Add adds a runtime group (layer 5).
func (t *Table) Add(group []string) {
	t.merge([][]string{group})
}

func parseSynonymFile(data []byte) ([][]string, error) {
	var withKey struct {
		Groups [][]string `json:"groups"`
	}
	if err := json.Unmarshal(data, &withKey); err == nil && withKey.Groups != nil {
		return withKey.Groups, nil
	}
	var bare [][]string
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, err
	}
	return bare, nil
}

// merge folds groups into the table (strictly additive) and rebuilds the
// compiled matcher. Groups with fewer than 2 entries are ignored.
func (t *Table) merge(groups [][]string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, g := range groups {
		if len(g) < 2 {
			continue
		}
		lowered := make([]string, len(g))
		for i, phrase := range g {
			lowered[i] = strings.ToLower(phrase)
		}
		t.groups = append(t.groups, lowered)
		for _, phrase := range lowered {
			var peers []string
			for _, other := range lowered {
				if other != phrase {
					peers = append(peers, other)
				}
			}
			t.lookup[phrase] = append(t.lookup[phrase], peers...)
		}
	}
	t.rebuild()
}

func (t *Table) rebuild() {
	keys := make([]string, 0, len(t.lookup))
	for k := range t.lookup {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	t.keys = keys

	if len(keys) == 0 {
		t.matcher = nil
		return
	}
	automaton, err := ahocorasick.NewBuilder().
		AddStrings(keys).
		SetMatchKind(ahocorasick.LeftmostFirst).
		SetPrefilter(true).
		Build()
	if err != nil {
		// A bad pattern set degrades to "no expansion" rather than a hard
		// failure; synonym expansion is advisory, not load-bearing.
		t.matcher = nil
		return
	}
	t.matcher = automaton
}

// Expand implements expand(query): sort phrase keys by descending length,
// for each key that occurs as a substring of the lowercased query, add
// every peer phrase's individual words to Expanded, excluding words
// already present in Original.
func (t *Table) Expand(query string) Expansion {
	t.mu.RLock()
	defer t.mu.RUnlock()

	lowered := strings.ToLower(query)
	original := strings.Fields(lowered)
	originalSet := make(map[string]bool, len(original))
	for _, w := range original {
		originalSet[w] = true
	}

	result := Expansion{Original: original}
	if t.matcher == nil {
		return result
	}

	matches := t.matcher.FindAllOverlapping([]byte(lowered))
	seenKeys := make(map[int]bool)
	added := make(map[string]bool)
	for _, m := range matches {
		if seenKeys[m.PatternID] {
			continue
		}
		seenKeys[m.PatternID] = true
		key := t.keys[m.PatternID]
		for _, peer := range t.lookup[key] {
			for _, word := range strings.Fields(peer) {
				if originalSet[word] || added[word] {
					continue
				}
				added[word] = true
				result.Expanded = append(result.Expanded, word)
			}
		}
	}
	return result
}
