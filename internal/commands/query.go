package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"

	"github.com/novahq/nova/internal/config"
	"github.com/novahq/nova/internal/models"
	"github.com/novahq/nova/internal/render"
)

var (
	queryLabelStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	queryHintStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)
)

var (
	colorPrimary = lipgloss.Color("#7aa2f7")
	colorTextDim = lipgloss.Color("#565f89")
)

// spinner handles the animated loading indicator for one-shot queries
type spinner struct {
	message string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	frame   int
	stopped bool
}

func newSpinner(message string) *spinner {
	return &spinner{
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (s *spinner) start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		// Hide cursor
		fmt.Fprint(os.Stderr, "\033[?25l")

		for {
			select {
			case <-s.stop:
				// Clear line and show cursor
				fmt.Fprint(os.Stderr, "\r\033[K\033[?25h")
				return
			case <-ticker.C:
				s.mu.Lock()
				s.render()
				s.frame++
				s.mu.Unlock()
			}
		}
	}()
}

func (s *spinner) render() {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	fmt.Fprintf(os.Stderr, "\r\033[K%s %s", chars[s.frame%len(chars)], s.message)
}

func (s *spinner) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.stop)
	<-s.done
}

// runQuery sends one turn to the backend and prints the rendered reply.
func runQuery(prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fmt.Errorf("prompt is empty")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := buildLogger()
	defer func() { _ = log.Sync() }()

	client := buildBackend(cfg, log)

	sp := newSpinner("thinking...")
	sp.start()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	text, err := client.SendTurn(ctx, models.TurnRequest{Text: prompt})
	sp.finish()
	if err != nil {
		return err
	}

	fmt.Println(queryLabelStyle.Render("Nova"))
	if rendered, rerr := render.MarkdownWithWidth(text, 100); rerr == nil {
		fmt.Print(rendered)
	} else {
		fmt.Println(text)
	}

	if cfg.CopyToClipboard {
		if cerr := clipboard.WriteAll(text); cerr == nil {
			fmt.Println(queryHintStyle.Render("(copied to clipboard)"))
		}
	}
	return nil
}
