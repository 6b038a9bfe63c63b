package domain

import "context"

// EmbeddingDimensions is the fixed vector dimension for the whole system.
// Every embedding call and every stored chunk uses this dimension; a
// mismatch anywhere is a hard error.
const EmbeddingDimensions = 1536

// LLMProvider is the interface for any completion backend.
type LLMProvider interface {
	// Chat sends a request and returns a complete response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// Name returns the provider's identifier (e.g., "openai").
	Name() string
}

// Embedding is the result of embedding a single text.
type Embedding struct {
	Vector []float32
	// Tokens is the provider-reported token count for the input.
	Tokens int
}

// EmbeddingProvider is the interface for text embedding backends.
type EmbeddingProvider interface {
	// Embed generates a fixed-dimension embedding for one text.
	Embed(ctx context.Context, text string) (Embedding, error)
	// Dimensions returns the dimensionality of the embedding vectors.
	Dimensions() int
	// Name returns the provider's identifier.
	Name() string
}

// ClientRegistry hands out provider clients per API key. Each bot carries
// its own credential, so live clients are cached by key rather than held
// as ambient package state. Destroy releases the cached clients for a key
// (e.g. when a bot is deleted).
type ClientRegistry interface {
	Completions(apiKey string) LLMProvider
	Embeddings(apiKey string) EmbeddingProvider
	Destroy(apiKey string)
}
