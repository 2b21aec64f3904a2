// Package agent – keyring.go stores the LLM API key in the operating
// system's native keyring (Linux: Secret Service, macOS: Keychain,
// Windows: Credential Manager).
//
// Resolution order: OS keyring → environment variable → config file.
package agent

import (
	"log/slog"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name used in the OS keyring.
	keyringService = "elia"

	// keyringAPIKey is the key name for the LLM API key.
	keyringAPIKey = "api_key"
)

// StoreKeyring saves a secret to the OS keyring.
func StoreKeyring(key, value string) error {
	return keyring.Set(keyringService, key, value)
}

// GetKeyring retrieves a secret from the OS keyring.
// Returns empty string when missing or the keyring is unavailable.
func GetKeyring(key string) string {
	val, err := keyring.Get(keyringService, key)
	if err != nil {
		return ""
	}
	return val
}

// DeleteKeyring removes a secret from the OS keyring.
func DeleteKeyring(key string) error {
	return keyring.Delete(keyringService, key)
}

// KeyringAvailable checks if the OS keyring is accessible.
func KeyringAvailable() bool {
	const testKey = "availability_test"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(keyringService, testKey)
	return true
}

// ResolveAPIKey fills cfg.API.APIKey from the most secure available
// source. Keeps whatever the loader already resolved when the keyring
// has nothing.
func ResolveAPIKey(cfg *Config, logger *slog.Logger) {
	if val := GetKeyring(keyringAPIKey); val != "" {
		cfg.API.APIKey = val
		logger.Debug("API key loaded from OS keyring")
		return
	}
	if cfg.API.APIKey != "" {
		logger.Debug("API key loaded from environment or config")
	}
}

// MigrateKeyToKeyring moves an API key into the OS keyring so it no
// longer needs to live in config or environment.
func MigrateKeyToKeyring(apiKey string) error {
	return StoreKeyring(keyringAPIKey, apiKey)
}
