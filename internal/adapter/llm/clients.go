package llm

import (
	"log/slog"
	"sync"

	"botbrain/internal/adapter/embedding"
	"botbrain/internal/domain"
	"botbrain/internal/infra/config"
)

// clientPair holds the providers built for one API key.
type clientPair struct {
	completions domain.LLMProvider
	embeddings  domain.EmbeddingProvider
}

// Clients implements domain.ClientRegistry. Providers are created lazily
// per API key and cached so every bot sharing a key shares one HTTP client
// and one circuit breaker.
type Clients struct {
	cfg    config.ProviderConfig
	logger *slog.Logger

	mu    sync.RWMutex
	pairs map[string]*clientPair
}

// NewClients creates an empty client registry.
func NewClients(cfg config.ProviderConfig, logger *slog.Logger) *Clients {
	return &Clients{
		cfg:    cfg,
		logger: logger,
		pairs:  make(map[string]*clientPair),
	}
}

// Completions returns the completion provider for an API key, creating and
// caching it on first use.
func (c *Clients) Completions(apiKey string) domain.LLMProvider {
	return c.pair(apiKey).completions
}

// Embeddings returns the embedding provider for an API key, creating and
// caching it on first use.
func (c *Clients) Embeddings(apiKey string) domain.EmbeddingProvider {
	return c.pair(apiKey).embeddings
}

// Destroy drops the cached providers for an API key. Subsequent lookups
// rebuild them. In-flight requests on the old providers finish unaffected.
func (c *Clients) Destroy(apiKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pairs, apiKey)
}

func (c *Clients) pair(apiKey string) *clientPair {
	c.mu.RLock()
	p, ok := c.pairs[apiKey]
	c.mu.RUnlock()
	if ok {
		return p
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pairs[apiKey]; ok {
		return p
	}

	completions := NewCircuitBreakerProvider(
		NewOpenAIProvider(c.cfg, apiKey, c.logger),
		CircuitBreakerConfig{},
		c.logger,
	)

	embedOpts := []embedding.OpenAIOption{}
	if c.cfg.EmbeddingModel != "" {
		embedOpts = append(embedOpts, embedding.WithOpenAIModel(c.cfg.EmbeddingModel))
	}
	if c.cfg.BaseURL != "" {
		embedOpts = append(embedOpts, embedding.WithOpenAIBaseURL(c.cfg.BaseURL))
	}

	p = &clientPair{
		completions: completions,
		embeddings:  embedding.NewOpenAIProvider(apiKey, embedOpts...),
	}
	c.pairs[apiKey] = p
	return p
}

var _ domain.ClientRegistry = (*Clients)(nil)
