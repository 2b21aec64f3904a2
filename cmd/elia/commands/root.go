// Package commands implements the Elia CLI commands using cobra.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/eliahq/elia/pkg/elia/agent"
)

// NewRootCmd creates the root CLI command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "elia",
		Short: "Elia - chat response agent",
		Long: `Elia is a chat-platform response agent: it listens to Discord
messages, decides per message whether to reply, builds a prompt from
personality, per-user memories and recent conversation, and keeps an
audit log of every exchange. An admin dashboard mutates the runtime
configuration live.

Examples:
  elia setup
  elia serve
  elia chat "what's the weather like?"`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newSetupCmd(),
		newChatCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}

// resolveConfig loads startup configuration from --config or the
// standard locations, falling back to defaults plus environment.
func resolveConfig(cmd *cobra.Command) (*agent.Config, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	if path == "" {
		path = agent.FindConfigFile()
	}
	if path == "" {
		cfg := agent.DefaultConfig()
		cfg.API.APIKey = os.Getenv("ELIA_API_KEY")
		cfg.Discord.Token = os.Getenv("ELIA_DISCORD_TOKEN")
		return cfg, nil
	}

	cfg, err := agent.LoadConfigFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %q: %w", path, err)
	}
	return cfg, nil
}

// newLogger builds the process logger from config and the --verbose flag.
func newLogger(cmd *cobra.Command, cfg *agent.Config) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	level := slog.LevelInfo
	if verbose || cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
