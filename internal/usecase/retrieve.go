package usecase

import (
	"context"
	"log/slog"
	"strings"

	"botbrain/internal/domain"
	"botbrain/internal/infra/tracer"
	"botbrain/internal/textsplit"
)

// retrievalBudget is the token budget for knowledge stuffed into a prompt.
const retrievalBudget = chunkTokens

// Retriever selects the knowledge that accompanies a user message. It is
// deliberately forgiving: any failure along the way degrades to "no
// knowledge" rather than failing the conversation.
type Retriever struct {
	store   domain.KnowledgeStore
	clients domain.ClientRegistry
	logger  *slog.Logger
}

// NewRetriever creates a retriever.
func NewRetriever(store domain.KnowledgeStore, clients domain.ClientRegistry, logger *slog.Logger) *Retriever {
	return &Retriever{store: store, clients: clients, logger: logger}
}

// Retrieve returns the knowledge text for a user message, or "" when the
// bot has no knowledge base or retrieval fails. Ranked results are taken
// in order while the running total stays under the token budget; the
// first chunk that would reach it ends the walk.
func (r *Retriever) Retrieve(ctx context.Context, bot domain.BotConfig, query string) string {
	if !bot.HasKnowledgebase() {
		return ""
	}

	ctx, span := tracer.StartSpan(ctx, "retrieve.knowledge")
	defer span.End()
	span.SetAttributes(tracer.StringAttr("bot.id", bot.ID))

	emb, err := r.clients.Embeddings(bot.APIKey).Embed(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed", "bot", bot.ID, "error", err)
		tracer.RecordError(span, err)
		return ""
	}

	results, err := r.store.Search(ctx, emb.Vector, bot.ID,
		domain.SearchTopK, domain.SearchCandidatePool)
	if err != nil {
		r.logger.Warn("knowledge search failed", "bot", bot.ID, "error", err)
		tracer.RecordError(span, err)
		return ""
	}

	var (
		parts []string
		used  int
	)
	for _, res := range results {
		tokens := res.Tokens
		if tokens <= 0 {
			tokens = textsplit.EstimateTokens(res.Content)
		}
		if used+tokens >= retrievalBudget {
			break
		}
		parts = append(parts, res.Content)
		used += tokens
	}

	span.SetAttributes(
		tracer.IntAttr("retrieve.results", len(results)),
		tracer.IntAttr("retrieve.used_tokens", used),
	)
	tracer.SetOK(span)
	return strings.Join(parts, " ")
}
