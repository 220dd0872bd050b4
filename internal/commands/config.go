package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/novahq/nova/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit nova configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		path, _ := config.GetConfigPath()
		fmt.Printf("# %s\n%s\n", path, data)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Sets one configuration value and saves the config file.

Keys: backend_url, app_name, user_id, streaming, poll_interval_seconds,
auto_capture, muted, voice_locale, input_device_uid, tts_command,
snip_command, copy_to_clipboard, verbose`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if err := applyConfigValue(&cfg, args[0], args[1]); err != nil {
			return err
		}
		return config.SaveConfig(cfg)
	},
}

func applyConfigValue(cfg *config.Config, key, value string) error {
	parseBool := func() (bool, error) {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("%s expects true/false, got %q", key, value)
		}
		return b, nil
	}

	switch key {
	case "backend_url":
		cfg.BackendURL = value
	case "app_name":
		cfg.AppName = value
	case "user_id":
		cfg.UserID = value
	case "voice_locale":
		cfg.VoiceLocale = value
	case "input_device_uid":
		cfg.InputDeviceUID = value
	case "tts_command":
		cfg.TTSCommand = value
	case "snip_command":
		cfg.SnipCommand = value
	case "poll_interval_seconds":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("poll_interval_seconds expects a positive integer, got %q", value)
		}
		cfg.PollIntervalSeconds = n
	case "streaming":
		b, err := parseBool()
		if err != nil {
			return err
		}
		cfg.Streaming = b
	case "auto_capture":
		b, err := parseBool()
		if err != nil {
			return err
		}
		cfg.AutoCapture = b
	case "muted":
		b, err := parseBool()
		if err != nil {
			return err
		}
		cfg.Muted = b
	case "copy_to_clipboard":
		b, err := parseBool()
		if err != nil {
			return err
		}
		cfg.CopyToClipboard = b
	case "verbose":
		b, err := parseBool()
		if err != nil {
			return err
		}
		cfg.Verbose = b
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
