package usecase

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"botbrain/internal/domain"
)

// --- Mocks shared by the usecase tests ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockLLM replays scripted responses in order. After the script runs out
// it returns a plain "fallback" answer. Requests are recorded for
// inspection.
type mockLLM struct {
	mu        sync.Mutex
	responses []domain.ChatResponse
	errs      []error
	requests  []domain.ChatRequest
	callIdx   int
}

func (m *mockLLM) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	idx := m.callIdx
	m.callIdx++

	if idx < len(m.errs) && m.errs[idx] != nil {
		return nil, m.errs[idx]
	}
	if idx >= len(m.responses) {
		return &domain.ChatResponse{
			Message: domain.Message{Role: domain.RoleAssistant, Content: "fallback"},
		}, nil
	}
	resp := m.responses[idx]
	return &resp, nil
}

func (m *mockLLM) Name() string { return "mock" }

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callIdx
}

// assistantText builds a plain assistant response.
func assistantText(content string) domain.ChatResponse {
	return domain.ChatResponse{
		Message: domain.Message{Role: domain.RoleAssistant, Content: content},
	}
}

// assistantToolCall builds an assistant response requesting one tool call.
func assistantToolCall(id, name, args string) domain.ChatResponse {
	return domain.ChatResponse{
		Message: domain.Message{
			Role: domain.RoleAssistant,
			ToolCalls: []domain.ToolCall{
				{ID: id, Name: name, Arguments: json.RawMessage(args)},
			},
		},
	}
}

// mockEmbedder returns a fixed vector for every text.
type mockEmbedder struct {
	vec    []float32
	tokens int
	err    error
	mu     sync.Mutex
	count  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.Embedding, error) {
	m.mu.Lock()
	m.count++
	m.mu.Unlock()
	if m.err != nil {
		return domain.Embedding{}, m.err
	}
	vec := m.vec
	if vec == nil {
		vec = make([]float32, domain.EmbeddingDimensions)
		vec[0] = 1
	}
	return domain.Embedding{Vector: vec, Tokens: m.tokens}, nil
}

func (m *mockEmbedder) Dimensions() int { return domain.EmbeddingDimensions }
func (m *mockEmbedder) Name() string    { return "mock" }

// mockClients hands out the same mock providers for every key.
type mockClients struct {
	llm      domain.LLMProvider
	embedder domain.EmbeddingProvider
}

func (m *mockClients) Completions(string) domain.LLMProvider    { return m.llm }
func (m *mockClients) Embeddings(string) domain.EmbeddingProvider { return m.embedder }
func (m *mockClients) Destroy(string)                           {}

// mockStore is an in-memory KnowledgeStore. Search returns the stored
// chunks in insertion order with descending synthetic scores.
type mockStore struct {
	mu         sync.Mutex
	chunks     []domain.KnowledgeChunk
	searchErr  error
	insertErr  error
	deleteErr  error
	deletes    []string
}

func (m *mockStore) Insert(_ context.Context, chunk domain.KnowledgeChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.chunks = append(m.chunks, chunk)
	return nil
}

func (m *mockStore) DeleteAllByBot(_ context.Context, botID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletes = append(m.deletes, botID)
	kept := m.chunks[:0]
	for _, c := range m.chunks {
		if c.BotID != botID {
			kept = append(kept, c)
		}
	}
	m.chunks = kept
	return nil
}

func (m *mockStore) Search(_ context.Context, _ []float32, botID string, topK, _ int) ([]domain.KnowledgeSearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	var results []domain.KnowledgeSearchResult
	for i, c := range m.chunks {
		if c.BotID != botID {
			continue
		}
		results = append(results, domain.KnowledgeSearchResult{
			Content: c.Content,
			Tokens:  c.Tokens,
			Score:   1 - float64(i)*0.01,
		})
		if len(results) == topK {
			break
		}
	}
	return results, nil
}

func (m *mockStore) stored() []domain.KnowledgeChunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.KnowledgeChunk, len(m.chunks))
	copy(out, m.chunks)
	return out
}

// mockToolExecutor serves a fixed tool map.
type mockToolExecutor struct {
	tools map[string]domain.Tool
}

func (m *mockToolExecutor) Get(name string) (domain.Tool, error) {
	t, ok := m.tools[name]
	if !ok {
		return nil, domain.NewDomainError("mockToolExecutor.Get", domain.ErrToolNotFound, name)
	}
	return t, nil
}

func (m *mockToolExecutor) Schemas() []domain.ToolSchema {
	schemas := make([]domain.ToolSchema, 0, len(m.tools))
	for _, t := range m.tools {
		schemas = append(schemas, t.Schema())
	}
	return schemas
}

// staticTool returns a fixed result.
type staticTool struct {
	name   string
	result string
}

func (t *staticTool) Name() string        { return t.name }
func (t *staticTool) Description() string { return "static test tool" }
func (t *staticTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{Name: t.name, Description: t.Description()}
}
func (t *staticTool) Execute(_ context.Context, _ json.RawMessage) (*domain.ToolResult, error) {
	return &domain.ToolResult{Content: t.result}, nil
}

// countingTool returns a fixed result and counts its executions.
type countingTool struct {
	name   string
	result string
	count  atomic.Int64
}

func (t *countingTool) Name() string        { return t.name }
func (t *countingTool) Description() string { return "counting test tool" }
func (t *countingTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{Name: t.name, Description: t.Description()}
}
func (t *countingTool) Execute(_ context.Context, _ json.RawMessage) (*domain.ToolResult, error) {
	t.count.Add(1)
	return &domain.ToolResult{Content: t.result}, nil
}
