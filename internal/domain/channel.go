package domain

import "context"

// InboundMessage is a platform message normalized by a channel adapter.
// ConversationID identifies the short-term memory thread (a Discord
// channel, a Telegram chat, ...), not the individual sender.
type InboundMessage struct {
	ConversationID string
	UserText       string
}

// MessageHandler processes a normalized inbound message for one bot and
// returns the reply text. Failures are returned as user-facing text
// through the same path, never as platform exceptions.
type MessageHandler func(ctx context.Context, bot BotConfig, msg InboundMessage) string

// Channel is a messaging-platform adapter. Implementations connect to the
// platform, normalize incoming messages, invoke the handler, and send the
// returned text back out.
type Channel interface {
	// Name returns the platform identifier (e.g., "discord").
	Name() string
	// Start connects and begins dispatching messages to handler.
	Start(ctx context.Context, handler MessageHandler) error
	// Stop disconnects and releases platform resources.
	Stop(ctx context.Context) error
}
