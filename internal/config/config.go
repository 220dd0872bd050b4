// Package config handles configuration for nova.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/novahq/nova/internal/models"
)

// Config represents the user configuration. Values load from
// ~/.nova/config.json and may be overridden with NOVA_* environment
// variables (e.g. NOVA_BACKEND_URL).
type Config struct {
	// BackendURL is the base URL of the chat backend.
	BackendURL string `json:"backend_url" envconfig:"BACKEND_URL"`
	// AppName identifies the backend agent application.
	AppName string `json:"app_name" envconfig:"APP_NAME"`
	// UserID identifies the backend user.
	UserID string `json:"user_id" envconfig:"USER_ID"`
	// Streaming selects the incremental streaming transport for turns.
	Streaming bool `json:"streaming" envconfig:"STREAMING"`
	// PollIntervalSeconds is the context watcher tick interval.
	PollIntervalSeconds int `json:"poll_interval_seconds" envconfig:"POLL_INTERVAL_SECONDS"`
	// AutoCapture enables continuous context capture on startup.
	AutoCapture bool `json:"auto_capture" envconfig:"AUTO_CAPTURE"`
	// Muted disables spoken replies.
	Muted bool `json:"muted" envconfig:"MUTED"`
	// VoiceLocale is the recognition locale passed to the speech engine.
	VoiceLocale string `json:"voice_locale" envconfig:"VOICE_LOCALE"`
	// InputDeviceUID selects the physical microphone; empty uses the default.
	InputDeviceUID string `json:"input_device_uid,omitempty" envconfig:"INPUT_DEVICE_UID"`
	// TTSCommand is the external synthesizer command ("say", "espeak", ...).
	TTSCommand string `json:"tts_command,omitempty" envconfig:"TTS_COMMAND"`
	// SnipCommand is the external screen-region capture tool; empty disables
	// the snip keybinding.
	SnipCommand string `json:"snip_command,omitempty" envconfig:"SNIP_COMMAND"`
	// CopyToClipboard copies one-shot replies to the clipboard.
	CopyToClipboard bool `json:"copy_to_clipboard" envconfig:"COPY_TO_CLIPBOARD"`
	// Verbose enables detailed logging output during operations.
	Verbose bool `json:"verbose" envconfig:"VERBOSE"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BackendURL:          models.DefaultBackendURL,
		AppName:             models.DefaultAppName,
		UserID:              models.DefaultUserID,
		Streaming:           false,
		PollIntervalSeconds: int(models.DefaultPollInterval / time.Second),
		VoiceLocale:         "en-US",
	}
}

// PollInterval returns the watcher tick interval as a duration.
func (c Config) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 {
		return models.DefaultPollInterval
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".nova"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	// 0o700: captured context snippets and transcripts are sensitive
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// LoadConfig loads the configuration from disk and applies NOVA_*
// environment overrides on top.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		// Use defaults if config doesn't exist
	} else if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := envconfig.Process("NOVA", &cfg); err != nil {
		return cfg, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(configDir, "config.json")
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
