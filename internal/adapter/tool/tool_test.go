package tool

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"botbrain/internal/domain"
)

// --- Mocks shared by the tool tests ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubFetcher returns fixed page text or a fixed error.
type stubFetcher struct {
	text string
	err  error

	mu   sync.Mutex
	urls []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *stubFetcher) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.urls))
	copy(out, f.urls)
	return out
}

// mockLLM replays scripted responses in order and records requests.
type mockLLM struct {
	mu        sync.Mutex
	responses []string
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
	content := "fallback"
	if idx < len(m.responses) {
		content = m.responses[idx]
	}
	return &domain.ChatResponse{
		Message: domain.Message{Role: domain.RoleAssistant, Content: content},
	}, nil
}

func (m *mockLLM) Name() string { return "mock" }

func (m *mockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callIdx
}
