package models

// PersistedIndex is the on-disk shape of the BM25 posting statistics.
// docMeta values are themselves JSON-encoded strings, matching the
// format the query engine restores from.
type PersistedIndex struct {
	Version              string            `json:"version"`
	DF                   map[string]int    `json:"df"`
	DocLengths           map[string]int    `json:"docLengths"`
	DocMeta              map[string]string `json:"docMeta"`
	TotalDocs            int               `json:"totalDocs"`
	TotalLength          int               `json:"totalLength"`
	LastIndexedTimestamp int64             `json:"lastIndexedTimestamp"`
}

// IndexVersion is the persisted index format version this build writes.
const IndexVersion = "1.1"

// DocMeta is the per-document metadata embedded (JSON-encoded) in a
// PersistedIndex's DocMeta map. supersededBy is deliberately absent here:
// it is already durable on each episode's own on-disk record and gets
// repopulated in memory by the post-restore full episode reload.
type DocMeta struct {
	CreatedAt      int64    `json:"createdAt"`
	Importance     float64  `json:"importance"`
	LastAccessedAt int64    `json:"lastAccessedAt"`
	Tags           []string `json:"tags"`
	Type           string   `json:"type"`
}
