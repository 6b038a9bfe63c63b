package domain

import "context"

// KnowledgeChunk is one stored span of a bot's knowledge base. Chunks are
// immutable once stored and are only ever deleted in bulk by bot id before
// a re-ingestion, so the knowledge base always reflects a single text
// version.
type KnowledgeChunk struct {
	BotID     string    `json:"bot_id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding"`
	Tokens    int       `json:"tokens"`
}

// KnowledgeSearchResult is a ranked hit from a similarity search.
type KnowledgeSearchResult struct {
	Content string  `json:"content"`
	Tokens  int     `json:"tokens"`
	Score   float64 `json:"score"`
}

// Default similarity search tuning.
const (
	SearchTopK          = 5
	SearchCandidatePool = 10
)

// KnowledgeStore persists knowledge chunks and performs similarity search
// filtered by bot identity.
type KnowledgeStore interface {
	// Insert stores one chunk. The embedding must be EmbeddingDimensions long.
	Insert(ctx context.Context, chunk KnowledgeChunk) error
	// DeleteAllByBot removes every chunk for a bot. Deleting a bot with no
	// chunks is not an error.
	DeleteAllByBot(ctx context.Context, botID string) error
	// Search returns up to topK chunks for the bot ranked by vector
	// similarity, drawn from a candidate pool of candidates entries.
	Search(ctx context.Context, embedding []float32, botID string, topK, candidates int) ([]KnowledgeSearchResult, error)
}
