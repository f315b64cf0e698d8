package query

import (
	"math"
	"sort"

	"github.com/engramhq/engram/internal/analyzer"
	"github.com/engramhq/engram/internal/scoring"
	"github.com/engramhq/engram/internal/synonyms"
)

const msPerDay = 86_400_000

// Filters narrows search to a subset of the corpus before scoring.
type Filters struct {
	Tags          []string
	Type          string
	After         *int64
	Before        *int64
	MinImportance *float64
}

// Options tunes the blended ranking. Use DefaultOptions for the
// documented defaults.
type Options struct {
	Now               int64 // unix ms "current time"; required for determinism
	Limit             int
	UseSynonyms       bool
	SynonymWeight     float64
	RecencyWeight     float64
	Lambda            float64
	IncludeSuperseded bool
	Filters           Filters
}

// DefaultOptions returns the documented default weights for now.
func DefaultOptions(now int64) Options {
	return Options{
		Now:           now,
		Limit:         10,
		UseSynonyms:   true,
		SynonymWeight: 0.5,
		RecencyWeight: 0.3,
		Lambda:        0.1,
	}
}

// Result is one ranked hit.
type Result struct {
	ID      string
	Score   float64
	BM25    float64
	Recency float64
}

func daysSince(now, t int64) float64 {
	return float64(now-t) / msPerDay
}

func effImportance(importance float64, now, lastAccessedAt int64) float64 {
	return importance * math.Pow(0.95, daysSince(now, lastAccessedAt))
}

// EffImportance is the public form of the decay formula, used by the
// orchestrator outside of search (prune, context building).
func EffImportance(importance float64, now, lastAccessedAt int64) float64 {
	return effImportance(importance, now, lastAccessedAt)
}

// Search scores every indexed doc against query and returns the top
// Options.Limit results, sorted descending by final score, ties broken
// by id ascending.
func Search(idx *Index, query string, synTable *synonyms.Table, opts Options) []Result {
	qtokens := analyzer.Tokenize(query)
	if len(qtokens) == 0 {
		return nil
	}

	var syntokens []string
	if opts.UseSynonyms {
		exp := synTable.Expand(query)
		expandedTokens := analyzer.Tokenize(joinWords(exp.Expanded))
		inQuery := make(map[string]bool, len(qtokens))
		for _, t := range qtokens {
			inQuery[t] = true
		}
		for _, t := range expandedTokens {
			if !inQuery[t] {
				syntokens = append(syntokens, t)
			}
		}
	}

	var results []Result
	for id, doc := range idx.Docs {
		if !passesFilters(doc, opts.Filters) {
			continue
		}

		effImp := effImportance(doc.Importance, opts.Now, doc.LastAccessedAt)
		if opts.Filters.MinImportance != nil && effImp < *opts.Filters.MinImportance {
			continue
		}

		avgdl := idx.AvgDL()
		b := sumBM25(idx, doc, qtokens, avgdl)
		bs := sumBM25(idx, doc, syntokens, avgdl)
		totalBM25 := b + opts.SynonymWeight*bs
		if totalBM25 == 0 {
			continue
		}

		recency := math.Exp(-opts.Lambda * daysSince(opts.Now, doc.CreatedAt))
		blended := (1-opts.RecencyWeight)*totalBM25 + opts.RecencyWeight*recency
		final := blended * (0.5 + effImp)

		if !opts.IncludeSuperseded && len(doc.SupersededBy) > 0 {
			final *= 0.3
		}

		results = append(results, Result{ID: id, Score: final, BM25: totalBM25, Recency: recency})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func sumBM25(idx *Index, doc *DocEntry, terms []string, avgdl float64) float64 {
	var total float64
	for _, t := range terms {
		tf := doc.TF[t]
		if tf == 0 {
			continue
		}
		idfTerm := idx.idf(t)
		total += scoring.BM25(tf, doc.DL, avgdl, idfTerm)
	}
	return total
}

func passesFilters(doc *DocEntry, f Filters) bool {
	for _, tag := range f.Tags {
		if !containsString(doc.Tags, tag) {
			return false
		}
	}
	if f.Type != "" && doc.Type != f.Type {
		return false
	}
	if f.After != nil && doc.CreatedAt < *f.After {
		return false
	}
	if f.Before != nil && doc.CreatedAt > *f.Before {
		return false
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func joinWords(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += " "
		}
		out += w
	}
	return out
}
