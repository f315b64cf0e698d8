// Package query implements the in-memory inverted index:
// document frequency, document lengths, per-doc term frequencies and
// metadata, plus filtered ranked search and supersession chain traversal.
package query

import (
	"encoding/json"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/engramhq/engram/internal/models"
	"github.com/engramhq/engram/internal/scoring"
)

// IndexAcceptance records which document ids a restored persisted index
// already accounted for, so the orchestrator's reload pass knows whether
// to hydrate (HydrateDoc) or count (Add) each episode it reads back.
type IndexAcceptance struct {
	PersistedIDs []string
}

// DocEntry is the per-document state the index keeps: the persisted
// fields (dl, createdAt, importance, lastAccessedAt, tags, type) plus the
// in-memory-only tf map and supersededBy list the persisted format omits.
type DocEntry struct {
	DL             int
	TF             map[string]int
	CreatedAt      int64
	Importance     float64
	LastAccessedAt int64
	Tags           []string
	Type           string
	SupersededBy   []string
}

// Index holds the corpus-wide posting statistics.
type Index struct {
	DF                   map[string]int
	TotalDocs            int
	TotalLength          int
	LastIndexedTimestamp int64
	Docs                 map[string]*DocEntry

	idfCache *lru.Cache[string, float64]
}

// New returns an empty Index.
func New() *Index {
	cache, _ := lru.New[string, float64](4096)
	return &Index{
		DF:       make(map[string]int),
		Docs:     make(map[string]*DocEntry),
		idfCache: cache,
	}
}

// AvgDL returns the mean document length across indexed episodes, 1 when
// the index is empty.
func (idx *Index) AvgDL() float64 {
	if idx.TotalDocs == 0 {
		return 1
	}
	return float64(idx.TotalLength) / float64(idx.TotalDocs)
}

// Add indexes ep. A no-op if ep.ID is already present.
func (idx *Index) Add(ep *models.Episode) {
	if _, exists := idx.Docs[ep.ID]; exists {
		return
	}

	tf := make(map[string]int, len(ep.Tokens))
	for _, term := range ep.Tokens {
		tf[term]++
	}
	for term := range tf {
		idx.DF[term]++
	}

	entry := &DocEntry{
		DL:             len(ep.Tokens),
		TF:             tf,
		CreatedAt:      ep.CreatedAt,
		Importance:     ep.Importance,
		LastAccessedAt: ep.LastAccessedAt,
		Tags:           ep.Tags,
		Type:           ep.Type,
		SupersededBy:   ep.SupersededBy,
	}
	idx.Docs[ep.ID] = entry
	idx.TotalDocs++
	idx.TotalLength += entry.DL
	if ep.CreatedAt > idx.LastIndexedTimestamp {
		idx.LastIndexedTimestamp = ep.CreatedAt
	}
	idx.idfCache.Purge()
}

// HydrateDoc fills in tf and the other episode-derived fields for a doc
// that a RestoreFromIndex call already counted in df/totals. Unlike Add,
// it never touches df or the running totals: the persisted index is
// trusted for those, and this call only supplies what the persisted
// format omits.
func (idx *Index) HydrateDoc(ep *models.Episode) {
	if _, exists := idx.Docs[ep.ID]; !exists {
		return
	}
	tf := make(map[string]int, len(ep.Tokens))
	for _, term := range ep.Tokens {
		tf[term]++
	}
	idx.Docs[ep.ID] = &DocEntry{
		DL:             len(ep.Tokens),
		TF:             tf,
		CreatedAt:      ep.CreatedAt,
		Importance:     ep.Importance,
		LastAccessedAt: ep.LastAccessedAt,
		Tags:           ep.Tags,
		Type:           ep.Type,
		SupersededBy:   ep.SupersededBy,
	}
}

// Remove deletes id from the index, decrementing df for every distinct
// term in its tf map and removing df entries that reach zero.
func (idx *Index) Remove(id string) {
	entry, exists := idx.Docs[id]
	if !exists {
		return
	}
	for term := range entry.TF {
		idx.DF[term]--
		if idx.DF[term] <= 0 {
			delete(idx.DF, term)
		}
	}
	idx.TotalDocs--
	idx.TotalLength -= entry.DL
	delete(idx.Docs, id)
	idx.idfCache.Purge()
}

// Rebuild clears the index and re-adds every episode in eps.
func (idx *Index) Rebuild(eps []*models.Episode) {
	idx.DF = make(map[string]int)
	idx.Docs = make(map[string]*DocEntry)
	idx.TotalDocs = 0
	idx.TotalLength = 0
	idx.LastIndexedTimestamp = 0
	for _, ep := range eps {
		idx.Add(ep)
	}
}

// RestoreFromIndex populates df, totals and per-doc metadata from a
// persisted index. Per-doc tf is not in the persisted format and starts
// empty: a correctness-oracle reload of all episodes is required
// afterward to rebuild it (the orchestrator's init policy does this).
func (idx *Index) RestoreFromIndex(persisted *models.PersistedIndex) {
	idx.DF = make(map[string]int, len(persisted.DF))
	for term, count := range persisted.DF {
		idx.DF[term] = count
	}
	idx.TotalDocs = persisted.TotalDocs
	idx.TotalLength = persisted.TotalLength
	idx.LastIndexedTimestamp = persisted.LastIndexedTimestamp

	idx.Docs = make(map[string]*DocEntry, len(persisted.DocLengths))
	for id, dl := range persisted.DocLengths {
		entry := &DocEntry{DL: dl, TF: make(map[string]int)}
		if rawMeta, ok := persisted.DocMeta[id]; ok {
			var meta models.DocMeta
			if err := json.Unmarshal([]byte(rawMeta), &meta); err == nil {
				entry.CreatedAt = meta.CreatedAt
				entry.Importance = meta.Importance
				entry.LastAccessedAt = meta.LastAccessedAt
				entry.Tags = meta.Tags
				entry.Type = meta.Type
			}
		}
		idx.Docs[id] = entry
	}
	idx.idfCache.Purge()
}

// ToPersisted serializes the index to the on-disk shape.
func (idx *Index) ToPersisted() *models.PersistedIndex {
	docLengths := make(map[string]int, len(idx.Docs))
	docMeta := make(map[string]string, len(idx.Docs))
	for id, entry := range idx.Docs {
		docLengths[id] = entry.DL
		meta := models.DocMeta{
			CreatedAt:      entry.CreatedAt,
			Importance:     entry.Importance,
			LastAccessedAt: entry.LastAccessedAt,
			Tags:           entry.Tags,
			Type:           entry.Type,
		}
		if encoded, err := json.Marshal(meta); err == nil {
			docMeta[id] = string(encoded)
		}
	}
	df := make(map[string]int, len(idx.DF))
	for term, count := range idx.DF {
		df[term] = count
	}
	return &models.PersistedIndex{
		Version:              models.IndexVersion,
		DF:                   df,
		DocLengths:           docLengths,
		DocMeta:              docMeta,
		TotalDocs:            idx.TotalDocs,
		TotalLength:          idx.TotalLength,
		LastIndexedTimestamp: idx.LastIndexedTimestamp,
	}
}

func (idx *Index) idf(term string) float64 {
	if cached, ok := idx.idfCache.Get(term); ok {
		return cached
	}
	df := idx.DF[term]
	val := scoring.IDF(df, idx.TotalDocs)
	idx.idfCache.Add(term, val)
	return val
}
