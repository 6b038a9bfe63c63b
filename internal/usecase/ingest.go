package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"

	"botbrain/internal/domain"
	"botbrain/internal/infra/tracer"
	"botbrain/internal/textsplit"
)

// Ingestion defaults.
const (
	// defaultIngestWorkers bounds concurrent embedding calls per process.
	defaultIngestWorkers = 4
	// defaultEmbedRate paces embedding requests (per second) so a large
	// rebuild doesn't trip the provider's rate limits.
	defaultEmbedRate = 5
)

// Ingestor rebuilds a bot's knowledge base from its configured text:
// delete everything stored for the bot, chunk the text, embed each chunk,
// insert. Rebuilds of the same bot are serialized; chunk embedding within
// a rebuild runs on a shared worker pool.
type Ingestor struct {
	store   domain.KnowledgeStore
	clients domain.ClientRegistry
	chunker *Chunker
	logger  *slog.Logger

	pool    *ants.Pool
	limiter *rate.Limiter
	locks   *KeyedLocker
}

// NewIngestor creates an ingestor with a worker pool of the given size.
// size <= 0 uses the default.
func NewIngestor(store domain.KnowledgeStore, clients domain.ClientRegistry, chunker *Chunker, logger *slog.Logger, size int) (*Ingestor, error) {
	if size <= 0 {
		size = defaultIngestWorkers
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("ingest pool: %w", err)
	}
	return &Ingestor{
		store:   store,
		clients: clients,
		chunker: chunker,
		logger:  logger,
		pool:    pool,
		limiter: rate.NewLimiter(rate.Limit(defaultEmbedRate), 1),
		locks:   NewKeyedLocker(),
	}, nil
}

// Close releases the worker pool.
func (ing *Ingestor) Close() {
	ing.pool.Release()
}

// Rebuild replaces the bot's stored knowledge with chunks derived from its
// configured knowledge text. Chunk-level failures are logged and skipped;
// the rebuild fails only when the old data cannot be deleted or nothing at
// all could be stored.
func (ing *Ingestor) Rebuild(ctx context.Context, bot domain.BotConfig) error {
	const op = "Ingestor.Rebuild"

	ctx, span := tracer.StartSpan(ctx, "ingest.rebuild")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("bot.id", bot.ID))

	unlock, err := ing.locks.Lock(ctx, bot.ID)
	if err != nil {
		return domain.NewDomainError(op, err, "rebuild lock")
	}
	defer unlock()

	if err := ing.store.DeleteAllByBot(ctx, bot.ID); err != nil {
		tracer.RecordError(span, err)
		return domain.WrapOp(op, err)
	}

	if !bot.HasKnowledgebase() {
		ing.logger.Info("knowledge base cleared", "bot", bot.ID)
		tracer.SetOK(span)
		return nil
	}

	chunks := ing.chunkText(ctx, bot)
	span.SetAttributes(tracer.IntAttr("ingest.chunks", len(chunks)))
	if len(chunks) == 0 {
		err := domain.NewDomainError(op, domain.ErrVectorStore, "no chunks produced")
		tracer.RecordError(span, err)
		return err
	}

	embedder := ing.clients.Embeddings(bot.APIKey)

	var (
		wg       sync.WaitGroup
		inserted atomic.Int64
	)
	for _, chunk := range chunks {
		chunk := chunk
		wg.Add(1)
		submitErr := ing.pool.Submit(func() {
			defer wg.Done()
			if err := ing.embedAndInsert(ctx, embedder, bot.ID, chunk); err != nil {
				ing.logger.Warn("chunk ingestion failed", "bot", bot.ID, "error", err)
				return
			}
			inserted.Add(1)
		})
		if submitErr != nil {
			wg.Done()
			ing.logger.Warn("ingest pool submit failed", "bot", bot.ID, "error", submitErr)
		}
	}
	wg.Wait()

	if inserted.Load() == 0 {
		err := domain.NewDomainError(op, domain.ErrEmbeddingFailed, "no chunks stored")
		tracer.RecordError(span, err)
		return err
	}

	ing.logger.Info("knowledge base rebuilt",
		"bot", bot.ID,
		"chunks", len(chunks),
		"stored", inserted.Load(),
	)
	tracer.SetOK(span)
	return nil
}

// chunkText produces the chunk list for a bot's knowledge text. Each large
// span is refined by the LLM; when refinement fails or yields nothing, the
// span falls back to a mechanical split so the knowledge base is never
// silently empty.
func (ing *Ingestor) chunkText(ctx context.Context, bot domain.BotConfig) []string {
	llm := ing.clients.Completions(bot.APIKey)

	var chunks []string
	for _, span := range SplitSpans(bot.Knowledgebase) {
		refined, err := ing.chunker.Chunk(ctx, llm, bot.Model, span)
		if err != nil {
			ing.logger.Warn("chunk refinement failed, using mechanical split",
				"bot", bot.ID, "error", err)
			refined = nil
		}
		if len(refined) == 0 {
			refined = textsplit.Split(span, chunkTokens)
		}
		chunks = append(chunks, refined...)
	}
	return chunks
}

func (ing *Ingestor) embedAndInsert(ctx context.Context, embedder domain.EmbeddingProvider, botID, chunk string) error {
	if err := ing.limiter.Wait(ctx); err != nil {
		return err
	}

	emb, err := embedder.Embed(ctx, chunk)
	if err != nil {
		return err
	}

	return ing.store.Insert(ctx, domain.KnowledgeChunk{
		BotID:     botID,
		Content:   chunk,
		Embedding: emb.Vector,
		Tokens:    emb.Tokens,
	})
}
