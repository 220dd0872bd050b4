// Package commands provides CLI commands for nova.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	fileFlag    string
	verboseFlag bool
	streamFlag  bool

	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "nova [prompt]",
	Short: "Context-aware desktop assistant",
	Long: `nova is a conversational assistant that augments a chat session with
ambient context captured from whatever application you are using, and
accepts voice as an alternate input modality.

Examples:
  nova chat                       Start the interactive assistant
  nova "What is this error?"      Send a single query
  nova -f prompt.md               Read prompt from file
  cat notes.txt | nova            Read prompt from stdin
  nova config show                Show configuration
  nova history list               List saved transcripts`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("nova %s (built %s)\n", Version, BuildTime)
			return nil
		}

		stat, _ := os.Stdin.Stat()
		hasStdin := (stat.Mode() & os.ModeCharDevice) == 0

		if fileFlag != "" {
			data, err := os.ReadFile(fileFlag)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			return runQuery(string(data))
		}

		if hasStdin {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			return runQuery(string(data))
		}

		if len(args) > 0 {
			return runQuery(args[0])
		}

		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable detailed logging")
	rootCmd.Flags().StringVarP(&fileFlag, "file", "f", "", "read prompt from file")
	rootCmd.Flags().BoolVar(&streamFlag, "stream", false, "use the streaming transport")
	rootCmd.Flags().Bool("version", false, "print version information")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
