// Package agent – commands.go implements privileged chat commands.
//
// Commands are prefixed with "/" and require the sender to be on the
// stored admin allow-list:
//
//	/wipe                              - Clear this channel's history
//	/remember <user_id> <fact...>      - Save a memory fact for a user
//	/filter add input|output <text>    - Add a filter pattern
//	/filter remove input|output <text> - Remove a filter pattern
//	/status                            - Show agent status
//	/help                              - Show available commands
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/eliahq/elia/pkg/elia/store"
)

// deniedText is the visible denial for unauthorized command attempts.
const deniedText = "Permission denied."

// CommandResult contains the result of a command execution.
type CommandResult struct {
	// Response is the text to send back to the invoking channel.
	Response string

	// Handled is true if the message was a command (even when denied).
	Handled bool
}

// IsCommand returns true if the message starts with "/".
func IsCommand(content string) bool {
	return strings.HasPrefix(strings.TrimSpace(content), "/")
}

// HandleCommand processes a privileged command from a chat message.
// Authorization is checked against the stored allow-list before any
// state is touched; a denial mutates nothing and writes no log entry.
func (a *Agent) HandleCommand(ctx context.Context, msg *Message) CommandResult {
	content := strings.TrimSpace(msg.Content)
	if !IsCommand(content) {
		return CommandResult{Handled: false}
	}

	parts := strings.Fields(content)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/wipe", "/remember", "/filter", "/status", "/help":
	default:
		// Not one of ours; let the pipeline treat it as a normal message.
		return CommandResult{Handled: false}
	}

	isAdmin, err := a.store.IsAdmin(ctx, msg.AuthorID)
	if err != nil {
		a.logger.Error("admin check failed", "from", msg.AuthorID, "error", err)
		return CommandResult{Response: deniedText, Handled: true}
	}
	if !isAdmin {
		a.logger.Info("privileged command denied",
			"from", msg.AuthorID, "command", cmd, "error", ErrAuthorization)
		return CommandResult{Response: deniedText, Handled: true}
	}

	switch cmd {
	case "/wipe":
		a.history.Wipe(msg.ChannelID)
		return CommandResult{Response: "History wiped for this channel.", Handled: true}

	case "/remember":
		return CommandResult{Response: a.rememberCommand(ctx, args), Handled: true}

	case "/filter":
		return CommandResult{Response: a.filterCommand(ctx, args), Handled: true}

	case "/status":
		return CommandResult{Response: a.statusCommand(ctx), Handled: true}

	case "/help":
		return CommandResult{Response: helpText, Handled: true}
	}

	return CommandResult{Handled: false}
}

const helpText = `Commands:
/wipe - clear this channel's conversation history
/remember <user_id> <fact> - save a memory fact for a user
/filter add input|output <pattern> - add a filter pattern
/filter remove input|output <pattern> - remove a filter pattern
/status - show agent status
/help - this message`

func (a *Agent) rememberCommand(ctx context.Context, args []string) string {
	if len(args) < 2 {
		return "Usage: /remember <user_id> <fact>"
	}
	userID := strings.Trim(args[0], "<@!>")
	fact := strings.Join(args[1:], " ")

	if err := a.store.AddFact(ctx, userID, fact); err != nil {
		a.logger.Error("remember failed", "user_id", userID, "error", err)
		return "Could not save that fact."
	}
	return fmt.Sprintf("Remembered for %s: %s", userID, fact)
}

func (a *Agent) filterCommand(ctx context.Context, args []string) string {
	if len(args) < 3 {
		return "Usage: /filter add|remove input|output <pattern>"
	}
	action := strings.ToLower(args[0])
	direction := strings.ToLower(args[1])
	pattern := strings.Join(args[2:], " ")

	if direction != store.DirectionInput && direction != store.DirectionOutput {
		return "Direction must be 'input' or 'output'."
	}

	switch action {
	case "add":
		if err := a.store.AddFilter(ctx, pattern, direction); err != nil {
			a.logger.Error("filter add failed", "error", err)
			return "Could not add that filter."
		}
		return fmt.Sprintf("Added %s filter: %s", direction, pattern)

	case "remove":
		n, err := a.store.DeleteFilterByPattern(ctx, pattern, direction)
		if err != nil {
			a.logger.Error("filter remove failed", "error", err)
			return "Could not remove that filter."
		}
		if n == 0 {
			return "No matching filter found."
		}
		return fmt.Sprintf("Removed %d %s filter(s): %s", n, direction, pattern)

	default:
		return "Usage: /filter add|remove input|output <pattern>"
	}
}

func (a *Agent) statusCommand(ctx context.Context) string {
	model, _ := a.store.GetConfig(ctx, store.KeyModelID)
	chance, _ := a.store.GetConfig(ctx, store.KeyReplyChance)
	logged, _ := a.store.CountExchanges(ctx)

	return fmt.Sprintf(
		"%s status:\nuptime: %s\nmodel: %s\nreply chance: %s\nchannels with history: %d\nexchanges logged: %d",
		a.cfg.Name,
		a.Uptime().Round(time.Second),
		model,
		chance,
		a.history.Channels(),
		logged,
	)
}
