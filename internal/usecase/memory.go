package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"botbrain/internal/domain"
	"botbrain/internal/textsplit"
)

// Conversation memory tuning.
const (
	// memoryMaxEntries is the per-conversation message cap. User and
	// assistant messages each count as one entry.
	memoryMaxEntries = 10
	// memoryEvictEntries is how many of the oldest messages are dropped
	// when the cap is reached.
	memoryEvictEntries = 2
	// memorySummarizeThreshold is the estimated token count above which a
	// stored message is rewritten into a shorter form in the background.
	memorySummarizeThreshold = 120
	// summarizerModel is the cheap model used for memory rewrites.
	summarizerModel = "gpt-4o-mini"
	// summarizeQueueSize bounds queued rewrite tasks. When the queue is
	// full, new tasks are dropped and the original text stays.
	summarizeQueueSize = 64
	// summarizeTimeout bounds one background rewrite call.
	summarizeTimeout = 30 * time.Second
)

// entry is one buffered message.
type entry struct {
	id      int64
	role    string
	content string
}

type summarizeTask struct {
	conversationID string
	apiKey         string
	entryID        int64
	text           string
}

type conversation struct {
	entries []entry
	nextID  int64
}

// push appends one message, evicting the oldest entries first when the
// conversation is at its cap, and returns the new entry's id.
func (c *conversation) push(role, content string) int64 {
	if len(c.entries) >= memoryMaxEntries {
		c.entries = c.entries[memoryEvictEntries:]
	}
	id := c.nextID
	c.nextID++
	c.entries = append(c.entries, entry{id: id, role: role, content: content})
	return id
}

// Memory is the short-term conversation buffer shared by every channel.
// Each conversation keeps the most recent messages, never more than the
// entry cap; long messages are rewritten into shorter summaries by a cheap
// model in the background, so a read immediately after an append may still
// see the original text.
type Memory struct {
	clients domain.ClientRegistry
	logger  *slog.Logger

	mu     sync.Mutex
	convos map[string]*conversation

	tasks   chan summarizeTask
	pending sync.WaitGroup
	done    chan struct{}
	once    sync.Once
}

// NewMemory creates a conversation memory and starts its rewrite worker.
func NewMemory(clients domain.ClientRegistry, logger *slog.Logger) *Memory {
	m := &Memory{
		clients: clients,
		logger:  logger,
		convos:  make(map[string]*conversation),
		tasks:   make(chan summarizeTask, summarizeQueueSize),
		done:    make(chan struct{}),
	}
	go m.worker()
	return m
}

// Append records one completed exchange as two messages. Messages over the
// summarize threshold are queued for background rewriting.
func (m *Memory) Append(bot domain.BotConfig, conversationID, userText, assistantText string) {
	m.mu.Lock()
	conv, ok := m.convos[conversationID]
	if !ok {
		conv = &conversation{}
		m.convos[conversationID] = conv
	}
	userID := conv.push(domain.RoleUser, userText)
	assistantID := conv.push(domain.RoleAssistant, assistantText)
	m.mu.Unlock()

	if textsplit.EstimateTokens(userText) > memorySummarizeThreshold {
		m.enqueue(summarizeTask{
			conversationID: conversationID,
			apiKey:         bot.APIKey,
			entryID:        userID,
			text:           userText,
		})
	}
	if textsplit.EstimateTokens(assistantText) > memorySummarizeThreshold {
		m.enqueue(summarizeTask{
			conversationID: conversationID,
			apiKey:         bot.APIKey,
			entryID:        assistantID,
			text:           assistantText,
		})
	}
}

// History returns the conversation's buffered messages, oldest first. The
// result is a copy.
func (m *Memory) History(conversationID string) []domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.convos[conversationID]
	if !ok {
		return nil
	}

	msgs := make([]domain.Message, 0, len(conv.entries))
	for _, e := range conv.entries {
		msgs = append(msgs, domain.Message{Role: e.role, Content: e.content})
	}
	return msgs
}

// Forget drops a conversation's buffer entirely.
func (m *Memory) Forget(conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.convos, conversationID)
}

// Flush blocks until all queued rewrites have completed. Intended for
// testing and shutdown.
func (m *Memory) Flush() {
	m.pending.Wait()
}

// Close stops the rewrite worker. Queued tasks are abandoned.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.done) })
}

func (m *Memory) enqueue(task summarizeTask) {
	m.pending.Add(1)
	select {
	case m.tasks <- task:
	default:
		m.pending.Done()
		m.logger.Warn("memory rewrite queue full, keeping original text",
			"conversation", task.conversationID)
	}
}

func (m *Memory) worker() {
	for {
		select {
		case <-m.done:
			return
		case task := <-m.tasks:
			m.rewrite(task)
			m.pending.Done()
		}
	}
}

// rewrite condenses one stored message. Failures keep the original text.
func (m *Memory) rewrite(task summarizeTask) {
	ctx, cancel := context.WithTimeout(context.Background(), summarizeTimeout)
	defer cancel()

	resp, err := m.clients.Completions(task.apiKey).Chat(ctx, domain.ChatRequest{
		Model: summarizerModel,
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "Condense the following message. Keep every fact, name, and number; drop filler. Answer with the condensed message only."},
			{Role: domain.RoleUser, Content: task.text},
		},
		Temperature: 0,
	})
	if err != nil {
		m.logger.Warn("memory rewrite failed",
			"conversation", task.conversationID, "error", err)
		return
	}
	condensed := resp.Message.Content
	if condensed == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.convos[task.conversationID]
	if !ok {
		return
	}
	for i := range conv.entries {
		if conv.entries[i].id == task.entryID {
			conv.entries[i].content = condensed
			return
		}
	}
	// Entry was evicted while the rewrite ran; nothing to update.
}
