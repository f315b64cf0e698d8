// Package models holds the on-disk and in-memory shapes shared across the
// analyzer, query engine, storage and orchestrator layers.
package models

// Episode is the atomic stored unit: a text chunk with metadata, tags,
// timestamps, importance, and supersession edges.
type Episode struct {
	ID             string         `json:"id"`
	Text           string         `json:"text"`
	Type           string         `json:"type"`
	Tags           []string       `json:"tags"`
	Importance     float64        `json:"importance"`
	AgentID        string         `json:"agentId"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	ChunkIndex     int            `json:"chunkIndex"`
	TotalChunks    int            `json:"totalChunks"`
	SourceID       string         `json:"sourceId"`
	CreatedAt      int64          `json:"createdAt"`
	LastAccessedAt int64          `json:"lastAccessedAt"`
	AccessCount    int            `json:"accessCount"`
	Tokens         []string       `json:"tokens,omitempty"`
	Supersedes     []string       `json:"supersedes,omitempty"`
	SupersededBy   []string       `json:"supersededBy,omitempty"`

	// Encryption sidebands. Absent (false) on plaintext episodes.
	Encrypted      bool `json:"_encrypted,omitempty"`
	TagsEncrypted  bool `json:"_tagsEncrypted,omitempty"`
}

// Known episode types. The type field is an open enumeration: unknown
// values are accepted and round-tripped unchanged.
const (
	TypeFact         = "fact"
	TypeConversation = "conversation"
	TypeDocument     = "document"
	TypeEvent        = "event"
	TypeSummary      = "summary"
	TypeTrade        = "trade"
	TypePosition     = "position"
	TypeAlert        = "alert"
	TypeDecision     = "decision"
	TypeLesson       = "lesson"
	TypeCheckpoint   = "checkpoint"
	TypeCustom       = "custom"
)

// DefaultImportance is the importance assigned when the caller does not
// specify one.
const DefaultImportance = 0.5

// ScoredEpisode is an Episode annotated with the ranking signals computed
// during recall.
type ScoredEpisode struct {
	Episode
	Score   float64 `json:"_score"`
	BM25    float64 `json:"_bm25"`
	Recency float64 `json:"_recency"`
}

// HasTag reports whether the episode carries tag, case-sensitive.
func (e *Episode) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddSupersededBy appends id to SupersededBy if not already present.
func (e *Episode) AddSupersededBy(id string) {
	for _, existing := range e.SupersededBy {
		if existing == id {
			return
		}
	}
	e.SupersededBy = append(e.SupersededBy, id)
}
