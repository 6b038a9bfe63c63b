package knowledge

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"botbrain/internal/domain"
)

// Store implements domain.KnowledgeStore backed by SQLite. Embeddings are
// stored as little-endian float32 blobs and ranked in process with cosine
// similarity. Knowledge bases are small enough (one ingested text per bot)
// that a linear scan per query beats maintaining an ANN index.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	dbPath string
}

// New opens (or creates) a SQLite database at dbPath, runs migrations, and
// returns a ready Store.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %v", domain.ErrVectorStore, err)
	}

	// SQLite write safety: single writer.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: pragma: %v", domain.ErrVectorStore, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", domain.ErrVectorStore, err)
	}

	return &Store{
		db:     db,
		logger: logger,
		dbPath: dbPath,
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert implements domain.KnowledgeStore.
func (s *Store) Insert(ctx context.Context, chunk domain.KnowledgeChunk) error {
	if len(chunk.Embedding) != domain.EmbeddingDimensions {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch,
			len(chunk.Embedding), domain.EmbeddingDimensions)
	}

	const insert = `
		INSERT INTO chunks (id, bot_id, content, embedding, tokens)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, insert,
		uuid.NewString(),
		chunk.BotID,
		chunk.Content,
		float32ToBytes(chunk.Embedding),
		chunk.Tokens,
	)
	if err != nil {
		return fmt.Errorf("%w: insert: %v", domain.ErrVectorStore, err)
	}
	return nil
}

// DeleteAllByBot implements domain.KnowledgeStore. Deleting a bot with no
// chunks is not an error.
func (s *Store) DeleteAllByBot(ctx context.Context, botID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE bot_id = ?", botID)
	if err != nil {
		return fmt.Errorf("%w: delete: %v", domain.ErrVectorStore, err)
	}
	return nil
}

// Count returns the number of stored chunks for a bot.
func (s *Store) Count(ctx context.Context, botID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE bot_id = ?", botID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", domain.ErrVectorStore, err)
	}
	return n, nil
}

// Search implements domain.KnowledgeStore. All of the bot's chunks are
// scored by cosine similarity, the best candidates entries form the pool,
// and the top topK of that pool are returned in descending score order.
func (s *Store) Search(ctx context.Context, embedding []float32, botID string, topK, candidates int) ([]domain.KnowledgeSearchResult, error) {
	if len(embedding) != domain.EmbeddingDimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch,
			len(embedding), domain.EmbeddingDimensions)
	}
	if topK <= 0 {
		topK = domain.SearchTopK
	}
	if candidates < topK {
		candidates = domain.SearchCandidatePool
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT content, embedding, tokens FROM chunks WHERE bot_id = ?", botID)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", domain.ErrVectorSearch, err)
	}
	defer rows.Close()

	var scored []domain.KnowledgeSearchResult
	for rows.Next() {
		var (
			content string
			blob    []byte
			tokens  int
		)
		if err := rows.Scan(&content, &blob, &tokens); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", domain.ErrVectorSearch, err)
		}
		vec := bytesToFloat32(blob)
		if vec == nil {
			s.logger.Warn("knowledge store: malformed embedding blob, skipping",
				"bot_id", botID)
			continue
		}
		scored = append(scored, domain.KnowledgeSearchResult{
			Content: content,
			Tokens:  tokens,
			Score:   float64(cosineSimilarity(embedding, vec)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", domain.ErrVectorSearch, err)
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > candidates {
		scored = scored[:candidates]
	}
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// cosineSimilarity computes dot(a,b) / (||a|| * ||b||).
// Returns 0 for zero-length vectors, length mismatch, or NaN/Inf results.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB)))
	if denom == 0 {
		return 0
	}
	result := dot / denom
	if math.IsNaN(float64(result)) || math.IsInf(float64(result), 0) {
		return 0
	}
	return result
}

// float32ToBytes converts a float32 slice to little-endian bytes.
func float32ToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32 converts little-endian bytes back to a float32 slice.
func bytesToFloat32(b []byte) []float32 {
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

var _ domain.KnowledgeStore = (*Store)(nil)
