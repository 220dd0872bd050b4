package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/novahq/nova/internal/config"
	"github.com/novahq/nova/internal/history"
	"github.com/novahq/nova/internal/models"
	"github.com/novahq/nova/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive assistant",
	Long: `Starts the interactive chat TUI. Voice capture, context auto-capture,
and spoken replies are driven from the keyboard; see the status bar for
bindings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

func runChat() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := buildLogger()
	defer func() { _ = log.Sync() }()

	orch, client := buildOrchestrator(cfg, log)
	defer orch.Close()

	if cfg.AutoCapture {
		// Best effort: a missing permission surfaces in the TUI error banner
		_ = orch.SetAutoCapture(true)
	}

	model := tui.NewModel(orch, cfg.Muted, cfg.AutoCapture)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return saveTranscript(orch.Messages(), client.SessionID())
}

// saveTranscript persists the finished session, skipping empty ones.
func saveTranscript(messages []models.Message, sessionID string) error {
	if len(messages) == 0 {
		return nil
	}

	configDir, err := config.EnsureConfigDir()
	if err != nil {
		return err
	}
	store, err := history.NewStore(configDir)
	if err != nil {
		return err
	}

	tr, err := store.Create(sessionID)
	if err != nil {
		return err
	}
	return store.SetMessages(tr.ID, messages)
}
