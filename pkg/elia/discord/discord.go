// Package discord connects Elia to the Discord gateway using discordgo.
// Inbound messages are normalized into agent.Message values and pushed
// onto a buffered channel; the serve loop consumes them so a slow
// pipeline never blocks the gateway's event dispatch.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/eliahq/elia/pkg/elia/agent"
)

// messageLimit is Discord's per-message character cap.
const messageLimit = 2000

// Config holds the gateway configuration.
type Config struct {
	// Token is the Discord bot token.
	Token string

	// SendTyping sends "typing..." indicators while a reply is
	// being generated.
	SendTyping bool
}

// Gateway wraps the discordgo session.
type Gateway struct {
	cfg     Config
	logger  *slog.Logger
	session *discordgo.Session

	// messages carries normalized inbound events to the serve loop.
	messages chan *agent.Message

	connected atomic.Bool
	lastMsg   atomic.Value // time.Time
}

// New creates a Gateway. Connect must be called before use.
func New(cfg Config, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		cfg:      cfg,
		logger:   logger.With("component", "discord"),
		messages: make(chan *agent.Message, 256),
	}
}

// Connect opens the Discord gateway WebSocket connection.
func (g *Gateway) Connect(ctx context.Context) error {
	if g.cfg.Token == "" {
		return fmt.Errorf("discord: bot token is required")
	}

	session, err := discordgo.New("Bot " + g.cfg.Token)
	if err != nil {
		return fmt.Errorf("discord: creating session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	session.AddHandler(g.onMessageCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord: opening gateway: %w", err)
	}

	g.session = session
	g.connected.Store(true)

	user := session.State.User
	g.logger.Info("discord: connected", "bot", user.Username, "id", user.ID)
	return nil
}

// Disconnect closes the gateway connection.
func (g *Gateway) Disconnect() error {
	if g.session != nil {
		g.session.Close()
	}
	g.connected.Store(false)
	g.logger.Info("discord: disconnected")
	return nil
}

// Receive returns the inbound message stream.
func (g *Gateway) Receive() <-chan *agent.Message {
	return g.messages
}

// IsConnected reports whether the gateway is up.
func (g *Gateway) IsConnected() bool { return g.connected.Load() }

// Send transmits text to the given channel, splitting messages that
// exceed Discord's character limit.
func (g *Gateway) Send(ctx context.Context, channelID, content string) error {
	if g.session == nil {
		return fmt.Errorf("discord: not connected")
	}

	for _, chunk := range splitMessage(content, messageLimit) {
		if _, err := g.session.ChannelMessageSend(channelID, chunk); err != nil {
			return fmt.Errorf("discord: sending message: %w", err)
		}
	}
	return nil
}

// Typing sends a typing indicator when enabled.
func (g *Gateway) Typing(channelID string) {
	if !g.cfg.SendTyping || g.session == nil {
		return
	}
	if err := g.session.ChannelTyping(channelID); err != nil {
		g.logger.Debug("discord: typing indicator failed", "error", err)
	}
}

// onMessageCreate normalizes incoming Discord messages.
func (g *Gateway) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore the bot's own messages and other bots.
	if m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	msg := &agent.Message{
		ID:         m.ID,
		ChannelID:  m.ChannelID,
		AuthorID:   m.Author.ID,
		AuthorName: m.Author.Username,
		Content:    stripBotMention(m.Content, s.State.User.ID),
		Mentioned:  mentionsUser(m.Mentions, s.State.User.ID),
	}

	g.lastMsg.Store(time.Now())

	select {
	case g.messages <- msg:
	default:
		g.logger.Warn("discord: message buffer full, dropping message", "msg_id", m.ID)
	}
}

// mentionsUser reports whether the given user appears in a message's
// mention list.
func mentionsUser(mentions []*discordgo.User, userID string) bool {
	for _, u := range mentions {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// stripBotMention removes the bot's mention token from the content so
// the model sees the question, not the address.
func stripBotMention(content, userID string) string {
	for _, token := range []string{"<@" + userID + ">", "<@!" + userID + ">"} {
		content = strings.ReplaceAll(content, token, "")
	}
	return strings.TrimSpace(content)
}

// splitMessage splits text into chunks respecting the character limit,
// preferring newline boundaries.
func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}
		cutAt := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/2 {
			cutAt = idx + 1
		}
		chunks = append(chunks, text[:cutAt])
		text = text[cutAt:]
	}
	return chunks
}
