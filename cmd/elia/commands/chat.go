package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/eliahq/elia/pkg/elia/agent"
	"github.com/eliahq/elia/pkg/elia/llm"
	"github.com/eliahq/elia/pkg/elia/lookup"
	"github.com/eliahq/elia/pkg/elia/store"
)

// newChatCmd creates the `elia chat` command for local conversations.
// Runs the identical reply pipeline against a terminal channel, no
// Discord connection needed.
func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the agent from the terminal",
		Long: `Start a conversation with the agent. Send a single message or
enter the interactive REPL (no arguments).

Examples:
  elia chat "what's the latest Go release?"
  elia chat`,
		Args: cobra.MaximumNArgs(1),
		RunE: runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	agent.ResolveAPIKey(cfg, logger)
	if err := cfg.Validate(); err != nil {
		return err
	}

	st, err := store.Open(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	defer st.Close()

	var searcher agent.Searcher
	if cfg.Lookup.Enabled {
		searcher = lookup.New(cfg.Lookup.MaxResults, logger)
	}

	completer := llm.New(cfg.API.BaseURL, cfg.API.APIKey, cfg.API.Timeout(), logger)
	bot := agent.New(cfg, st, completer, searcher, logger)
	ctx := context.Background()

	// The terminal operator is implicitly an admin.
	if err := st.AddAdmin(ctx, "cli"); err != nil {
		logger.Warn("could not grant cli admin", "error", err)
	}

	if len(args) > 0 {
		return chatOnce(ctx, bot, args[0])
	}
	return chatREPL(ctx, bot)
}

// chatOnce sends a single message and prints the reply.
func chatOnce(ctx context.Context, bot *agent.Agent, input string) error {
	reply, err := bot.HandleMessage(ctx, cliMessage(input))
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

// chatREPL runs the interactive loop until EOF or /exit.
func chatREPL(ctx context.Context, bot *agent.Agent) error {
	rl, err := readline.New("you> ")
	if err != nil {
		return fmt.Errorf("starting readline: %w", err)
	}
	defer rl.Close()

	fmt.Println("Interactive chat. /exit to quit, /wipe to clear history.")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/exit" || line == "/quit" {
			return nil
		}

		msg := cliMessage(line)
		if agent.IsCommand(line) {
			result := bot.HandleCommand(ctx, msg)
			if result.Handled {
				fmt.Println(result.Response)
				continue
			}
		}

		reply, err := bot.HandleMessage(ctx, msg)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Printf("%s> %s\n", "elia", reply)
	}
}

// cliMessage wraps terminal input as a mentioned message so the agent
// always replies in this mode.
func cliMessage(input string) *agent.Message {
	return &agent.Message{
		ChannelID:  "cli",
		AuthorID:   "cli",
		AuthorName: "operator",
		Content:    input,
		Mentioned:  true,
	}
}
