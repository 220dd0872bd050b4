package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/novahq/nova/internal/config"
	"github.com/novahq/nova/internal/history"
	"github.com/novahq/nova/internal/models"
	"github.com/novahq/nova/internal/render"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage saved transcripts",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved transcripts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistoryStore()
		if err != nil {
			return err
		}
		transcripts, err := store.List()
		if err != nil {
			return err
		}
		if len(transcripts) == 0 {
			fmt.Println("no saved transcripts")
			return nil
		}
		for _, tr := range transcripts {
			fmt.Printf("%s  %s  (%d messages)  %s\n",
				tr.ID[:8], tr.UpdatedAt.Format("2006-01-02 15:04"),
				len(tr.Messages), tr.Title)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistoryStore()
		if err != nil {
			return err
		}
		tr, err := resolveTranscript(store, args[0])
		if err != nil {
			return err
		}
		for _, msg := range tr.Messages {
			label := "You"
			if msg.Role == models.RoleAssistant {
				label = "Nova"
			}
			fmt.Printf("── %s ──\n", label)
			if msg.Role == models.RoleAssistant {
				if rendered, rerr := render.MarkdownWithWidth(msg.Text, 100); rerr == nil {
					fmt.Print(rendered)
					continue
				}
			}
			fmt.Println(msg.Text)
		}
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all saved transcripts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistoryStore()
		if err != nil {
			return err
		}
		return store.ClearAll()
	},
}

func openHistoryStore() (*history.Store, error) {
	configDir, err := config.EnsureConfigDir()
	if err != nil {
		return nil, err
	}
	return history.NewStore(configDir)
}

// resolveTranscript accepts a full id or an unambiguous prefix.
func resolveTranscript(store *history.Store, id string) (*history.Transcript, error) {
	if tr, err := store.Get(id); err == nil {
		return tr, nil
	}

	transcripts, err := store.List()
	if err != nil {
		return nil, err
	}
	var match *history.Transcript
	for _, tr := range transcripts {
		if strings.HasPrefix(tr.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("transcript id %q is ambiguous", id)
			}
			match = tr
		}
	}
	if match == nil {
		return nil, fmt.Errorf("transcript not found: %s", id)
	}
	return match, nil
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)
}
