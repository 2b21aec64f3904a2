// Package agent implements the message-to-reply orchestration pipeline
// for Elia. Each inbound message runs the pipeline independently:
// trigger decision, input gate, context assembly, model call, output
// gate, exchange log, history append, reply.
//
// Shared state discipline: runtime configuration and filter rules live
// in the record store and are re-read on every message, so dashboard
// writes are visible to the next evaluation. No lock is held across a
// model, lookup, or store call.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/eliahq/elia/pkg/elia/store"
)

// ModelFaultText is the user-visible reply when the model call fails.
const ModelFaultText = "Sorry, I'm having trouble thinking right now. Try again in a bit."

// Message is an inbound chat event, normalized across transports.
type Message struct {
	// ID is the platform message id.
	ID string

	// ChannelID scopes history and ordering.
	ChannelID string

	// AuthorID identifies the sender for memory lookup and admin checks.
	AuthorID string

	// AuthorName is the display name, used as the log speaker.
	AuthorName string

	// Content is the raw input text.
	Content string

	// Mentioned is true when the agent identity is explicitly addressed.
	Mentioned bool
}

// Speaker returns the identity recorded in the exchange log.
func (m *Message) Speaker() string {
	if m.AuthorName != "" {
		return m.AuthorName
	}
	return m.AuthorID
}

// Completer is the remote language-model collaborator: prompt in,
// completion text or failure out. At most one call per message.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt, model string) (string, error)
}

// Searcher is the optional web-lookup collaborator. Best-effort:
// failures yield empty context.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Agent orchestrates the reply pipeline and owns the per-channel
// rolling history.
type Agent struct {
	cfg     *Config
	store   *store.Store
	llm     Completer
	lookup  Searcher
	history *History
	logger  *slog.Logger
	started time.Time

	// draw produces a fresh uniform value in [0,1) per trigger
	// evaluation. Replaceable in tests.
	draw func() float64

	// onRespond fires once a message passes the trigger decision,
	// before any slow work. Messages the trigger declines never fire it.
	onRespond func(channelID string)
}

// New creates an Agent. lookup may be nil to disable web context.
func New(cfg *Config, st *store.Store, llm Completer, lookup Searcher, logger *slog.Logger) *Agent {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		cfg:     cfg,
		store:   st,
		llm:     llm,
		lookup:  lookup,
		history: NewHistory(cfg.HistoryWindow),
		logger:  logger.With("component", "agent"),
		started: time.Now(),
		draw:    rand.Float64,
	}
}

// Store exposes the record store for the dashboard and CLI.
func (a *Agent) Store() *store.Store { return a.store }

// History exposes the rolling history for commands and status.
func (a *Agent) History() *History { return a.history }

// OnRespond registers a callback invoked when the agent commits to
// replying to a message. The gateway uses it for the typing indicator,
// so channels only see activity for messages that get a reply.
func (a *Agent) OnRespond(fn func(channelID string)) { a.onRespond = fn }

// HandleMessage runs the full pipeline for one inbound message and
// returns the reply text. An empty reply means the agent stays silent
// (no model call, no log entry). A non-nil error aborts only this
// evaluation; the caller logs it and moves on.
func (a *Agent) HandleMessage(ctx context.Context, msg *Message) (string, error) {
	start := time.Now()
	logger := a.logger.With(
		"channel_id", msg.ChannelID,
		"from", msg.AuthorID,
		"msg_id", msg.ID,
	)

	// Trigger decision. reply_chance is read fresh, never cached.
	chance, err := a.store.GetConfig(ctx, store.KeyReplyChance)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return "", fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		return "", err
	}
	respond, err := ShouldReply(msg.Mentioned, chance, a.draw)
	if err != nil {
		return "", err
	}
	if !respond {
		return "", nil
	}
	if a.onRespond != nil {
		a.onRespond(msg.ChannelID)
	}

	// Input gate runs strictly before the model call: blocklisted
	// input never spends a completion.
	inputPatterns, err := a.store.Filters(ctx, store.DirectionInput)
	if err != nil {
		return "", err
	}

	var reply string
	switch {
	case FilterBlocked(msg.Content, inputPatterns):
		logger.Info("input blocked by filter")
		reply = RefusalText

	default:
		reply, err = a.generate(ctx, logger, msg)
		if err != nil {
			return "", err
		}
	}

	// Append one exchange log entry with the original input and the
	// possibly redacted output. A failed append must not eat the reply.
	if err := a.store.AppendExchange(ctx, msg.Speaker(), msg.Content, reply); err != nil {
		logger.Error("exchange log append failed", "error", err)
	}

	// History update: both turns under one per-channel lock, in
	// finalization order.
	a.history.Append(msg.ChannelID, "User: "+msg.Content, "AI: "+reply)

	logger.Info("message processed", "duration_ms", time.Since(start).Milliseconds())
	return reply, nil
}

// generate assembles context, calls the model, and applies the output
// gate. Model faults are recovered into a user-visible error reply.
func (a *Agent) generate(ctx context.Context, logger *slog.Logger, msg *Message) (string, error) {
	systemPrompt, err := a.assembleContext(ctx, msg.ChannelID, msg.AuthorID, msg.Content)
	if err != nil {
		return "", err
	}

	model, err := a.store.GetConfig(ctx, store.KeyModelID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if model == "" {
		return "", fmt.Errorf("%w: model_id is empty", ErrConfiguration)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.API.Timeout())
	defer cancel()

	output, err := a.llm.Complete(callCtx, systemPrompt, msg.Content, model)
	if err != nil {
		// Timeouts and API errors alike: recovered locally, logged
		// like any normal exchange.
		logger.Warn("model call failed", "model", model,
			"error", fmt.Errorf("%w: %v", ErrModelCall, err))
		return ModelFaultText, nil
	}

	outputPatterns, err := a.store.Filters(ctx, store.DirectionOutput)
	if err != nil {
		return "", err
	}
	if FilterBlocked(output, outputPatterns) {
		logger.Info("output redacted by filter")
		return RedactionText, nil
	}

	return output, nil
}

// Uptime returns how long the agent has been running.
func (a *Agent) Uptime() time.Duration {
	return time.Since(a.started)
}
