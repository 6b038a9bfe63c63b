package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"botbrain/internal/domain"
	"botbrain/internal/textsplit"
)

// Chunking constants.
const (
	// rawSpanTokens is the size of the mechanical pre-split. Spans this
	// large fit comfortably in a refinement prompt.
	rawSpanTokens = 10000
	// chunkTokens is the target size of a refined knowledge chunk and the
	// token budget unit used throughout retrieval.
	chunkTokens = 400
)

// chunkPattern matches one delimited chunk in a refinement response.
// Non-greedy so adjacent chunks don't merge; (?s) so chunks may span lines.
var chunkPattern = regexp.MustCompile(`(?s)<textchunk>(.*?)</textchunk>`)

// ExtractChunks parses the delimited chunks out of a refinement response.
// Text outside the delimiters is ignored. A response with no delimiters
// yields no chunks.
func ExtractChunks(s string) []string {
	matches := chunkPattern.FindAllStringSubmatch(s, -1)
	chunks := make([]string, 0, len(matches))
	for _, m := range matches {
		chunks = append(chunks, m[1])
	}
	return chunks
}

// Chunker turns free-form knowledge text into retrieval-sized chunks. The
// text is first split mechanically into large spans, then each span is
// rewritten by the LLM into self-contained chunks wrapped in delimiters.
type Chunker struct {
	logger *slog.Logger
}

// NewChunker creates a chunker.
func NewChunker(logger *slog.Logger) *Chunker {
	return &Chunker{logger: logger}
}

// Chunk refines one mechanical span into delimited chunks via the LLM.
// The returned slice may be empty when the model produced no delimiters;
// the caller decides how to recover.
func (c *Chunker) Chunk(ctx context.Context, llm domain.LLMProvider, model, span string) ([]string, error) {
	system := fmt.Sprintf(
		"You split documents for a retrieval system. Divide the following text into self-contained chunks of at most %d tokens each. "+
			"Each chunk must make sense on its own, so repeat names and context instead of using pronouns that point outside the chunk. "+
			"Wrap every chunk in <textchunk> and </textchunk> tags and output nothing else.",
		chunkTokens,
	)

	resp, err := llm.Chat(ctx, domain.ChatRequest{
		Model: model,
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: system},
			{Role: domain.RoleUser, Content: span},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, domain.WrapOp("Chunker.Chunk", err)
	}

	chunks := ExtractChunks(resp.Message.Content)
	if len(chunks) == 0 {
		c.logger.Warn("chunk refinement produced no delimited chunks",
			"model", model, "span_tokens", textsplit.EstimateTokens(span))
	}
	return chunks, nil
}

// SplitSpans performs the mechanical pre-split of a full knowledge text.
func SplitSpans(text string) []string {
	return textsplit.Split(text, rawSpanTokens)
}
