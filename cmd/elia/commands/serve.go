package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/eliahq/elia/pkg/elia/agent"
	"github.com/eliahq/elia/pkg/elia/discord"
	"github.com/eliahq/elia/pkg/elia/llm"
	"github.com/eliahq/elia/pkg/elia/lookup"
	"github.com/eliahq/elia/pkg/elia/store"
	"github.com/eliahq/elia/pkg/elia/webui"
)

// newServeCmd creates the `elia serve` command that starts the daemon.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the agent daemon",
		Long: `Connect to Discord, process messages, and serve the admin
dashboard until interrupted.

Examples:
  elia serve
  elia serve --config ./elia.yaml`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cfg)
	agent.ResolveAPIKey(cfg, logger)

	// Startup faults are the only fatal ones: fail fast here, never
	// mid-traffic.
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	st, err := store.Open(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("opening record store: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var searcher agent.Searcher
	if cfg.Lookup.Enabled {
		searcher = lookup.New(cfg.Lookup.MaxResults, logger)
	}

	completer := llm.New(cfg.API.BaseURL, cfg.API.APIKey, cfg.API.Timeout(), logger)
	bot := agent.New(cfg, st, completer, searcher, logger)

	gw := discord.New(discord.Config{Token: cfg.Discord.Token, SendTyping: true}, logger)
	if err := gw.Connect(ctx); err != nil {
		return err
	}
	defer gw.Disconnect()

	// Typing fires only for messages the trigger accepts, so channels
	// the agent stays silent in see no activity at all.
	bot.OnRespond(gw.Typing)

	// Dashboard runs concurrently with message traffic; all of its
	// writes land in the store the pipeline re-reads per message.
	var dashboard *webui.Server
	if cfg.WebUI.Enabled {
		dashboard, err = webui.New(webui.Config{
			Enabled:      true,
			Address:      cfg.WebUI.Address,
			PasswordHash: cfg.WebUI.PasswordHash,
			PasswordSalt: cfg.WebUI.PasswordSalt,
		}, st, logger)
		if err != nil {
			return err
		}
		if err := dashboard.Start(ctx); err != nil {
			return err
		}
		defer dashboard.Stop()
	}

	// Daily exchange-log retention.
	if cfg.RetentionDays > 0 {
		pruner := cron.New()
		retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
		_, err := pruner.AddFunc("@daily", func() {
			pctx, pcancel := context.WithTimeout(context.Background(), time.Minute)
			defer pcancel()
			n, err := st.PruneExchanges(pctx, time.Now().Add(-retention))
			if err != nil {
				logger.Error("log pruning failed", "error", err)
				return
			}
			if n > 0 {
				logger.Info("pruned exchange log", "rows", n)
			}
		})
		if err != nil {
			return fmt.Errorf("registering retention job: %w", err)
		}
		pruner.Start()
		defer pruner.Stop()
	}

	logger.Info("elia started",
		"name", cfg.Name,
		"history_window", cfg.HistoryWindow,
		"lookup_enabled", cfg.Lookup.Enabled,
	)

	// Message loop: one goroutine per inbound message, so a slow model
	// call on one channel never delays another channel's replies.
	go func() {
		for msg := range gw.Receive() {
			go handleMessage(ctx, bot, gw, msg, logger)
		}
	}()

	// Wait for shutdown signal.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info("shutting down", "signal", s.String())
	case <-ctx.Done():
	}

	return nil
}

// handleMessage runs one message through commands and the reply
// pipeline, then delivers the result. Faults abort only this message.
func handleMessage(ctx context.Context, bot *agent.Agent, gw *discord.Gateway, msg *agent.Message, logger *slog.Logger) {
	if agent.IsCommand(msg.Content) {
		result := bot.HandleCommand(ctx, msg)
		if result.Handled {
			if result.Response != "" {
				if err := gw.Send(ctx, msg.ChannelID, result.Response); err != nil {
					logger.Error("command reply failed", "channel_id", msg.ChannelID, "error", err)
				}
			}
			return
		}
	}

	reply, err := bot.HandleMessage(ctx, msg)
	if err != nil {
		logger.Error("message evaluation failed",
			"channel_id", msg.ChannelID, "msg_id", msg.ID, "error", err)
		return
	}
	if reply == "" {
		return
	}

	if err := gw.Send(ctx, msg.ChannelID, reply); err != nil {
		logger.Error("reply delivery failed", "channel_id", msg.ChannelID, "error", err)
	}
}
