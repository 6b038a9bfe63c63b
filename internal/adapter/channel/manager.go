package channel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"botbrain/internal/domain"
)

// Manager owns the running channels, keyed by bot id. Channels are created
// and started together, looked up by id, and destroyed explicitly; there
// is no implicit lifecycle tied to configuration reloads.
type Manager struct {
	handler domain.MessageHandler
	logger  *slog.Logger

	mu       sync.RWMutex
	channels map[string]domain.Channel
}

// NewManager creates an empty channel manager. Every channel it starts
// dispatches inbound messages to handler.
func NewManager(handler domain.MessageHandler, logger *slog.Logger) *Manager {
	return &Manager{
		handler:  handler,
		logger:   logger,
		channels: make(map[string]domain.Channel),
	}
}

// Create builds and starts a Discord channel for the bot. Returns an error
// if a channel for the bot already exists or the platform connection fails.
func (m *Manager) Create(ctx context.Context, bot domain.DiscordBotConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.channels[bot.ID]; exists {
		return fmt.Errorf("channel for bot %q already exists", bot.ID)
	}

	ch := NewDiscordChannel(bot, m.logger)
	if err := ch.Start(ctx, m.handler); err != nil {
		return fmt.Errorf("start channel for bot %q: %w", bot.ID, err)
	}

	m.channels[bot.ID] = ch
	m.logger.Info("channel created", "bot", bot.ID, "platform", ch.Name())
	return nil
}

// Lookup returns the running channel for a bot id.
func (m *Manager) Lookup(botID string) (domain.Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[botID]
	return ch, ok
}

// Destroy stops and removes the channel for a bot id. Destroying a bot
// with no channel is not an error.
func (m *Manager) Destroy(ctx context.Context, botID string) error {
	m.mu.Lock()
	ch, ok := m.channels[botID]
	delete(m.channels, botID)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	if err := ch.Stop(ctx); err != nil {
		return fmt.Errorf("stop channel for bot %q: %w", botID, err)
	}
	m.logger.Info("channel destroyed", "bot", botID)
	return nil
}

// StopAll stops every running channel. Used on shutdown.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	channels := m.channels
	m.channels = make(map[string]domain.Channel)
	m.mu.Unlock()

	for id, ch := range channels {
		if err := ch.Stop(ctx); err != nil {
			m.logger.Warn("channel stop failed", "bot", id, "error", err)
		}
	}
}
