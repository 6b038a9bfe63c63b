package channel

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"botbrain/internal/domain"
)

// discordMaxMessageLen is Discord's hard limit per message. Longer replies
// are split at whitespace.
const discordMaxMessageLen = 2000

// DiscordChannel implements domain.Channel for one Discord bot via
// discordgo. The conversation id is the Discord channel id, so everyone in
// a channel shares the same short-term memory thread.
type DiscordChannel struct {
	bot       domain.DiscordBotConfig
	session   *discordgo.Session
	handler   domain.MessageHandler
	logger    *slog.Logger
	botUserID string
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
}

// NewDiscordChannel creates a Discord channel for one bot.
func NewDiscordChannel(bot domain.DiscordBotConfig, logger *slog.Logger) *DiscordChannel {
	return &DiscordChannel{
		bot:    bot,
		logger: logger,
	}
}

func (d *DiscordChannel) Name() string { return "discord" }

// Start implements domain.Channel.
func (d *DiscordChannel) Start(ctx context.Context, handler domain.MessageHandler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handler = handler
	d.ctx, d.cancel = context.WithCancel(ctx)

	dg, err := discordgo.New("Bot " + d.bot.BotToken)
	if err != nil {
		return err
	}
	d.session = dg
	d.session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent

	d.session.AddHandler(d.onMessageCreate)

	if err := d.session.Open(); err != nil {
		return err
	}
	d.botUserID = d.session.State.User.ID

	if d.bot.StatusText != "" {
		if err := d.session.UpdateGameStatus(0, d.bot.StatusText); err != nil {
			d.logger.Warn("discord status update failed", "bot", d.bot.ID, "error", err)
		}
	}

	d.logger.Info("discord channel started", "bot", d.bot.ID, "user_id", d.botUserID)
	return nil
}

// Stop implements domain.Channel.
func (d *DiscordChannel) Stop(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}
	if d.session != nil {
		return d.session.Close()
	}
	return nil
}

func (d *DiscordChannel) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore own messages.
	if m.Author.ID == d.botUserID {
		return
	}

	// In guilds, only respond when mentioned. DMs always get a reply.
	isMention := false
	for _, u := range m.Mentions {
		if u.ID == d.botUserID {
			isMention = true
			break
		}
	}
	if m.GuildID != "" && !isMention {
		return
	}

	content := m.Content
	if isMention {
		content = strings.ReplaceAll(content, "<@"+d.botUserID+">", "")
		content = strings.ReplaceAll(content, "<@!"+d.botUserID+">", "")
		content = strings.TrimSpace(content)
	}
	if content == "" {
		return
	}

	go func() {
		_ = s.ChannelTyping(m.ChannelID)

		reply := d.handler(d.ctx, d.bot.BotConfig, domain.InboundMessage{
			ConversationID: m.ChannelID,
			UserText:       content,
		})
		if reply == "" {
			return
		}

		for _, part := range splitMessage(reply, discordMaxMessageLen) {
			if _, err := s.ChannelMessageSend(m.ChannelID, part); err != nil {
				d.logger.Error("discord send failed",
					"bot", d.bot.ID, "channel", m.ChannelID, "error", err)
				return
			}
		}
	}()
}

// splitMessage breaks text into pieces of at most limit bytes, preferring
// newline then space boundaries.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var parts []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			cut = strings.LastIndex(text[:limit], " ")
		}
		if cut <= 0 {
			cut = limit
		}
		parts = append(parts, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

var _ domain.Channel = (*DiscordChannel)(nil)
