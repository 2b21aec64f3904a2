package commands

import (
	"fmt"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/eliahq/elia/pkg/elia/agent"
	"github.com/eliahq/elia/pkg/elia/webui"
)

// newSetupCmd creates the `elia setup` interactive configuration wizard.
func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive first-run configuration",
		Long: `Walk through the initial configuration: Discord credentials, API
endpoint, and the dashboard password. Writes elia.yaml with secrets
kept out of the file (OS keyring and environment references).`,
		RunE: runSetup,
	}
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg := agent.DefaultConfig()
	var token, baseURL string
	baseURL = cfg.API.BaseURL

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Agent name").
				Value(&cfg.Name),
			huh.NewInput().
				Title("Discord bot token").
				EchoMode(huh.EchoModePassword).
				Value(&token),
			huh.NewInput().
				Title("API base URL (OpenAI-compatible)").
				Value(&baseURL),
			huh.NewInput().
				Title("Dashboard listen address").
				Value(&cfg.WebUI.Address),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("setup aborted: %w", err)
	}

	cfg.Discord.Token = token
	cfg.API.BaseURL = baseURL

	// API key: hidden input, stored in the OS keyring when available so
	// it never touches the config file.
	apiKey, err := readHidden("API key (hidden input): ")
	if err != nil {
		return fmt.Errorf("reading API key: %w", err)
	}
	if apiKey != "" {
		if agent.KeyringAvailable() {
			if err := agent.MigrateKeyToKeyring(apiKey); err != nil {
				fmt.Println("Could not store the key in the OS keyring; set ELIA_API_KEY instead.")
			} else {
				fmt.Println("API key stored in the OS keyring.")
			}
		} else {
			fmt.Println("OS keyring unavailable; set ELIA_API_KEY in your environment.")
		}
	}

	// Dashboard password: hashed with argon2id, only the digest is
	// written to the config file.
	password, err := readHidden("Dashboard password (hidden input): ")
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	if password != "" {
		hash, salt, err := webui.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		cfg.WebUI.PasswordHash = hash
		cfg.WebUI.PasswordSalt = salt
	} else {
		cfg.WebUI.Enabled = false
		fmt.Println("No password set; dashboard disabled.")
	}

	const path = "elia.yaml"
	if err := agent.SaveConfigToFile(cfg, path); err != nil {
		return err
	}

	fmt.Printf("\nConfiguration written to %s.\n", path)
	fmt.Println("Set ELIA_DISCORD_TOKEN in your environment or .env, then run: elia serve")
	return nil
}

// readHidden prompts for a secret without echoing it.
func readHidden(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
