package usecase

import (
	"fmt"
	"strings"
	"testing"

	"botbrain/internal/domain"
)

func newTestMemory(llm domain.LLMProvider) *Memory {
	return NewMemory(&mockClients{llm: llm}, testLogger())
}

func TestMemoryHistoryOrder(t *testing.T) {
	m := newTestMemory(&mockLLM{})
	defer m.Close()

	bot := testBot()
	m.Append(bot, "conv", "hi", "hello")
	m.Append(bot, "conv", "how are you", "fine")

	got := m.History("conv")
	if len(got) != 4 {
		t.Fatalf("got %d messages, want 4", len(got))
	}
	want := []struct{ role, content string }{
		{domain.RoleUser, "hi"},
		{domain.RoleAssistant, "hello"},
		{domain.RoleUser, "how are you"},
		{domain.RoleAssistant, "fine"},
	}
	for i, w := range want {
		if got[i].Role != w.role || got[i].Content != w.content {
			t.Errorf("message %d = %s %q, want %s %q", i, got[i].Role, got[i].Content, w.role, w.content)
		}
	}
}

func TestMemoryConversationsAreIsolated(t *testing.T) {
	m := newTestMemory(&mockLLM{})
	defer m.Close()

	bot := testBot()
	m.Append(bot, "conv-a", "a", "reply-a")
	m.Append(bot, "conv-b", "b", "reply-b")

	if got := m.History("conv-a"); len(got) != 2 || got[0].Content != "a" {
		t.Errorf("conv-a history wrong: %v", got)
	}
	if got := m.History("conv-b"); len(got) != 2 || got[0].Content != "b" {
		t.Errorf("conv-b history wrong: %v", got)
	}
	if got := m.History("conv-c"); got != nil {
		t.Errorf("unknown conversation returned %v", got)
	}
}

func TestMemoryEvictsOldestEntries(t *testing.T) {
	m := newTestMemory(&mockLLM{})
	defer m.Close()

	bot := testBot()
	for i := 0; i < memoryMaxEntries/2; i++ {
		m.Append(bot, "conv", fmt.Sprintf("u%d", i), fmt.Sprintf("a%d", i))
	}
	if got := m.History("conv"); len(got) != memoryMaxEntries {
		t.Fatalf("got %d messages after filling, want %d", len(got), memoryMaxEntries)
	}

	// Buffer is full; the next exchange evicts the two oldest messages
	// before each push, so the cap holds.
	m.Append(bot, "conv", "u-new", "a-new")

	got := m.History("conv")
	if len(got) != memoryMaxEntries {
		t.Fatalf("got %d messages, want %d", len(got), memoryMaxEntries)
	}
	if got[0].Content != "u1" {
		t.Errorf("oldest surviving message = %q, want u1", got[0].Content)
	}
	if got[len(got)-1].Content != "a-new" {
		t.Errorf("newest message = %q, want a-new", got[len(got)-1].Content)
	}
}

func TestMemoryNeverExceedsEntryCap(t *testing.T) {
	m := newTestMemory(&mockLLM{})
	defer m.Close()

	bot := testBot()
	for i := 0; i < 25; i++ {
		m.Append(bot, "conv", fmt.Sprintf("u%d", i), fmt.Sprintf("a%d", i))
		if got := len(m.History("conv")); got > memoryMaxEntries {
			t.Fatalf("history has %d messages after exchange %d, cap is %d",
				got, i, memoryMaxEntries)
		}
	}
	if got := len(m.History("conv")); got != memoryMaxEntries {
		t.Errorf("history has %d messages, want %d", got, memoryMaxEntries)
	}
}

func TestMemoryRewritesLongMessages(t *testing.T) {
	llm := &mockLLM{responses: []domain.ChatResponse{
		assistantText("condensed"),
	}}
	m := newTestMemory(llm)
	defer m.Close()

	long := strings.Repeat("verbose ", memorySummarizeThreshold+10)
	m.Append(testBot(), "conv", "short question", long)
	m.Flush()

	got := m.History("conv")
	if got[1].Content != "condensed" {
		t.Errorf("assistant message = %q, want condensed", got[1].Content)
	}
	if got[0].Content != "short question" {
		t.Errorf("user message rewritten unexpectedly: %q", got[0].Content)
	}

	// The rewrite must use the cheap summarizer model.
	if got := llm.requests[0].Model; got != summarizerModel {
		t.Errorf("model = %q, want %q", got, summarizerModel)
	}
}

func TestMemoryShortMessagesNotRewritten(t *testing.T) {
	llm := &mockLLM{}
	m := newTestMemory(llm)
	defer m.Close()

	m.Append(testBot(), "conv", "short", "also short")
	m.Flush()

	if llm.calls() != 0 {
		t.Errorf("llm called %d times, want 0", llm.calls())
	}
}

func TestMemoryRewriteFailureKeepsOriginal(t *testing.T) {
	llm := &mockLLM{errs: []error{fmt.Errorf("rate limited")}}
	m := newTestMemory(llm)
	defer m.Close()

	long := strings.Repeat("verbose ", memorySummarizeThreshold+10)
	m.Append(testBot(), "conv", "q", long)
	m.Flush()

	got := m.History("conv")
	if got[1].Content != long {
		t.Errorf("original text lost on rewrite failure")
	}
}

func TestMemoryForget(t *testing.T) {
	m := newTestMemory(&mockLLM{})
	defer m.Close()

	m.Append(testBot(), "conv", "hi", "hello")
	m.Forget("conv")
	if got := m.History("conv"); got != nil {
		t.Errorf("history after forget: %v", got)
	}
}
