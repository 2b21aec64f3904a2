// Package agent – loader.go loads the startup configuration from YAML
// with credentials supplied via environment variables and .env files.
package agent

import (
	"fmt"
	"os"
	"regexp"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} or $VAR_NAME in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Z_][A-Z0-9_]*)`)

// LoadConfigFromFile reads and parses a YAML configuration file.
// Loads .env files first and expands environment variable references
// before parsing, then overlays credentials from the environment.
func LoadConfigFromFile(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg, err := ParseConfig([]byte(expanded))
	if err != nil {
		return nil, err
	}

	resolveSecrets(cfg)
	return cfg, nil
}

// ParseConfig parses YAML bytes into a Config.
// Starts with defaults and overlays values from the YAML.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return cfg, nil
}

// SaveConfigToFile writes a Config as YAML with restricted permissions.
// Secrets are written as environment variable references.
func SaveConfigToFile(cfg *Config, path string) error {
	sanitized := *cfg
	if sanitized.API.APIKey != "" {
		sanitized.API.APIKey = "${ELIA_API_KEY}"
	}
	if sanitized.Discord.Token != "" {
		sanitized.Discord.Token = "${ELIA_DISCORD_TOKEN}"
	}

	data, err := yaml.Marshal(&sanitized)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// FindConfigFile searches for config files in standard locations.
func FindConfigFile() string {
	candidates := []string{
		"elia.yaml",
		"elia.yml",
		"config.yaml",
		"configs/elia.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ---------- Internal ----------

// loadEnvFiles loads .env files from standard locations, silently
// ignoring the ones that do not exist.
func loadEnvFiles() {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}
}

// expandEnvVars replaces ${VAR} and $VAR references with environment
// values. Unset variables expand to empty, which validation catches.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		name := groups[1]
		if name == "" {
			name = groups[2]
		}
		return os.Getenv(name)
	})
}

// resolveSecrets overlays credentials from the environment when the
// config file left them empty.
func resolveSecrets(cfg *Config) {
	if cfg.API.APIKey == "" {
		cfg.API.APIKey = os.Getenv("ELIA_API_KEY")
	}
	if cfg.Discord.Token == "" {
		cfg.Discord.Token = os.Getenv("ELIA_DISCORD_TOKEN")
	}
}
