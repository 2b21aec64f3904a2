package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseConfigOverlaysDefaults(t *testing.T) {
	yaml := `
name: TestBot
history_window: 8
api:
  timeout_seconds: 30
lookup:
  enabled: false
`
	cfg, err := ParseConfig([]byte(yaml))
	if err != nil {
		t.Fatalf("ParseConfig() error: %v", err)
	}

	if cfg.Name != "TestBot" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.HistoryWindow != 8 {
		t.Errorf("HistoryWindow = %d", cfg.HistoryWindow)
	}
	if cfg.API.Timeout() != 30*time.Second {
		t.Errorf("API.Timeout() = %s", cfg.API.Timeout())
	}
	if cfg.Lookup.Enabled {
		t.Error("lookup still enabled after explicit false")
	}

	// Untouched fields keep their defaults.
	if cfg.Database != "./data/elia.db" {
		t.Errorf("Database = %q, want default", cfg.Database)
	}
	if cfg.API.BaseURL == "" {
		t.Error("default base URL lost")
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("ELIA_TEST_DB", "/tmp/custom.db")
	t.Setenv("ELIA_API_KEY", "key-from-env")
	t.Setenv("ELIA_DISCORD_TOKEN", "token-from-env")

	path := filepath.Join(t.TempDir(), "elia.yaml")
	content := "database: ${ELIA_TEST_DB}\nname: EnvBot\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile() error: %v", err)
	}
	if cfg.Database != "/tmp/custom.db" {
		t.Errorf("Database = %q, want the env value expanded", cfg.Database)
	}

	// Secrets absent from the file come from the environment.
	if cfg.API.APIKey != "key-from-env" {
		t.Errorf("APIKey = %q", cfg.API.APIKey)
	}
	if cfg.Discord.Token != "token-from-env" {
		t.Errorf("Token = %q", cfg.Discord.Token)
	}
}

func TestSaveConfigRedactsSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.APIKey = "sk-very-secret"
	cfg.Discord.Token = "bot-token-secret"

	path := filepath.Join(t.TempDir(), "elia.yaml")
	if err := SaveConfigToFile(cfg, path); err != nil {
		t.Fatalf("SaveConfigToFile() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved config: %v", err)
	}
	text := string(data)

	if strings.Contains(text, "sk-very-secret") || strings.Contains(text, "bot-token-secret") {
		t.Errorf("secrets written in the clear:\n%s", text)
	}
	if !strings.Contains(text, "${ELIA_API_KEY}") || !strings.Contains(text, "${ELIA_DISCORD_TOKEN}") {
		t.Errorf("secret placeholders missing:\n%s", text)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file mode = %o, want 600", perm)
	}

	// The in-memory config is untouched.
	if cfg.API.APIKey != "sk-very-secret" {
		t.Error("SaveConfigToFile mutated the caller's config")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := DefaultConfig()
		cfg.API.APIKey = "key"
		cfg.Discord.Token = "token"
		cfg.WebUI.PasswordHash = "hash"
		return cfg
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		serve   bool
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false, false},
		{"valid serve", func(c *Config) {}, true, false},
		{"zero window", func(c *Config) { c.HistoryWindow = 0 }, false, true},
		{"missing api key", func(c *Config) { c.API.APIKey = "" }, false, true},
		{"zero timeout", func(c *Config) { c.API.TimeoutSeconds = 0 }, false, true},
		{"zero lookup timeout", func(c *Config) { c.Lookup.TimeoutSeconds = 0 }, false, true},
		{"zero lookup timeout with lookup off", func(c *Config) {
			c.Lookup.Enabled = false
			c.Lookup.TimeoutSeconds = 0
		}, false, false},
		{"missing token ok for chat", func(c *Config) { c.Discord.Token = "" }, false, false},
		{"missing token fails serve", func(c *Config) { c.Discord.Token = "" }, true, true},
		{"dashboard without password", func(c *Config) { c.WebUI.PasswordHash = "" }, true, true},
		{"dashboard disabled no password", func(c *Config) {
			c.WebUI.Enabled = false
			c.WebUI.PasswordHash = ""
		}, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)

			var err error
			if tc.serve {
				err = cfg.ValidateServe()
			} else {
				err = cfg.Validate()
			}
			if (err != nil) != tc.wantErr {
				t.Errorf("error = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}
