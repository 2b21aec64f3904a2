// Package agent – config.go defines the startup configuration for Elia.
// Runtime values the dashboard can change (personality, reply_chance,
// model_id) live in the record store instead and are read per message.
package agent

import (
	"fmt"
	"time"
)

// Config holds all startup configuration, loaded once and validated
// before anything connects. There are no silent fallbacks for
// credentials: a missing token or API key fails fast.
type Config struct {
	// Name is the agent name shown in replies and the dashboard.
	Name string `yaml:"name"`

	// HistoryWindow is the number of turns kept per channel.
	HistoryWindow int `yaml:"history_window"`

	// Database is the SQLite file path.
	Database string `yaml:"database"`

	// Discord configures the gateway connection.
	Discord DiscordConfig `yaml:"discord"`

	// API configures the LLM endpoint.
	API APIConfig `yaml:"api"`

	// Lookup configures the optional web lookup.
	Lookup LookupConfig `yaml:"lookup"`

	// WebUI configures the admin dashboard.
	WebUI WebUIConfig `yaml:"webui"`

	// RetentionDays is how long exchange log rows are kept.
	// Zero or negative disables pruning.
	RetentionDays int `yaml:"retention_days"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// DiscordConfig holds the gateway credentials.
type DiscordConfig struct {
	// Token is the bot token.
	Token string `yaml:"token"`
}

// APIConfig holds the LLM endpoint settings.
type APIConfig struct {
	// BaseURL is the OpenAI-compatible endpoint base.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against the endpoint. Resolved from the OS
	// keyring or environment when empty here.
	APIKey string `yaml:"api_key"`

	// TimeoutSeconds bounds each completion call.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the completion call deadline as a duration.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LookupConfig holds the web lookup settings.
type LookupConfig struct {
	// Enabled turns the lookup on/off.
	Enabled bool `yaml:"enabled"`

	// TimeoutSeconds bounds each lookup call.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// MaxResults caps the results folded into the prompt.
	MaxResults int `yaml:"max_results"`
}

// Timeout returns the lookup deadline as a duration.
func (c LookupConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// WebUIConfig holds the dashboard settings.
type WebUIConfig struct {
	// Enabled turns the dashboard on/off.
	Enabled bool `yaml:"enabled"`

	// Address is the listen address.
	Address string `yaml:"address"`

	// PasswordHash is the base64 argon2id digest of the admin password.
	PasswordHash string `yaml:"password_hash"`

	// PasswordSalt is the base64 salt used for the digest.
	PasswordSalt string `yaml:"password_salt"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the log format ("json", "text").
	Format string `yaml:"format"`
}

// DefaultConfig returns the default startup configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:          "Elia",
		HistoryWindow: 5,
		Database:      "./data/elia.db",
		API: APIConfig{
			BaseURL:        "https://api.groq.com/openai/v1",
			TimeoutSeconds: 60,
		},
		Lookup: LookupConfig{
			Enabled:        true,
			TimeoutSeconds: 10,
			MaxResults:     3,
		},
		WebUI: WebUIConfig{
			Enabled: true,
			Address: ":5000",
		},
		RetentionDays: 90,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the fields every mode needs. Gateway credentials are
// checked separately by ValidateServe since the CLI chat mode runs
// without Discord.
func (c *Config) Validate() error {
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("history_window must be positive, got %d", c.HistoryWindow)
	}
	if c.API.APIKey == "" {
		return fmt.Errorf("API key not configured: set ELIA_API_KEY or run 'elia setup'")
	}
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be positive, got %d", c.API.TimeoutSeconds)
	}
	if c.Lookup.Enabled && c.Lookup.TimeoutSeconds <= 0 {
		return fmt.Errorf("lookup.timeout_seconds must be positive when lookup is enabled, got %d", c.Lookup.TimeoutSeconds)
	}
	return nil
}

// ValidateServe checks the additional fields the daemon needs.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Discord.Token == "" {
		return fmt.Errorf("discord token not configured: set ELIA_DISCORD_TOKEN or run 'elia setup'")
	}
	if c.WebUI.Enabled && c.WebUI.PasswordHash == "" {
		return fmt.Errorf("dashboard enabled without a password: run 'elia setup' to set one")
	}
	return nil
}
