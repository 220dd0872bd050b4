package tui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/novahq/nova/internal/models"
	"github.com/novahq/nova/internal/orchestrator"
	"github.com/novahq/nova/internal/render"
)

// orchestratorMsg wraps one orchestrator event for the bubbletea loop.
type orchestratorMsg struct {
	event orchestrator.Event
}

// Model is the chat TUI state. All conversation state lives in the
// orchestrator; the model only mirrors what it is told through events.
type Model struct {
	orch *orchestrator.Orchestrator

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// Mirrored orchestrator state
	messages      []models.Message
	streaming     bool
	listening     bool
	partial       string
	recognizedApp *models.RecognizedApp
	pendingChars  int
	hasPending    bool
	hasImage      bool
	muted         bool
	autoCapture   bool
	errText       string

	ready  bool
	width  int
	height int
}

// NewModel creates the chat TUI over a running orchestrator.
func NewModel(orch *orchestrator.Orchestrator, muted, autoCapture bool) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask nova anything..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	return Model{
		orch:        orch,
		textarea:    ta,
		spinner:     s,
		muted:       muted,
		autoCapture: autoCapture,
	}
}

// Init starts listening for orchestrator events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.listenEvents(),
	)
}

// listenEvents relays the next orchestrator event into the bubbletea loop.
func (m Model) listenEvents() tea.Cmd {
	events := m.orch.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return orchestratorMsg{event: ev}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 3
		inputHeight := 5
		statusHeight := 1
		padding := 2

		vpHeight := m.height - headerHeight - inputHeight - statusHeight - padding
		if vpHeight < 5 {
			vpHeight = 5
		}
		contentWidth := m.width - 4

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.textarea.SetWidth(contentWidth - 4)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
			m.textarea.SetWidth(contentWidth - 4)
		}
		m.updateViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.orch.Close()
			return m, tea.Quit

		case "enter":
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				break
			}
			if input == "exit" || input == "quit" || input == "/exit" || input == "/quit" {
				m.orch.Close()
				return m, tea.Quit
			}
			m.textarea.Reset()
			m.errText = ""
			orch := m.orch
			return m, tea.Batch(
				func() tea.Msg { orch.Submit(input); return nil },
				m.spinner.Tick,
			)

		case "ctrl+r":
			if m.listening {
				m.orch.StopVoiceCapture(true, false)
			} else {
				m.orch.StartVoiceCapture()
			}

		case "ctrl+g":
			m.autoCapture = !m.autoCapture
			enabled := m.autoCapture
			orch := m.orch
			return m, func() tea.Msg {
				if err := orch.SetAutoCapture(enabled); err != nil {
					return nil // surfaced through an ErrorEvent
				}
				return nil
			}

		case "ctrl+x":
			m.orch.ClearPendingContext()

		case "ctrl+s":
			orch := m.orch
			return m, func() tea.Msg { orch.AttachSelection(true); return nil }

		case "ctrl+p":
			m.orch.CaptureSnip()

		case "ctrl+o":
			m.muted = m.orch.ToggleMute()

		case "ctrl+y":
			if text := m.lastAssistantText(); text != "" {
				_ = clipboard.WriteAll(text)
			}
		}

	case orchestratorMsg:
		m.applyEvent(msg.event)
		cmds = append(cmds, m.listenEvents())

	case spinner.TickMsg:
		if m.streaming {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	if _, ok := msg.(tea.KeyMsg); ok && !m.streaming {
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// applyEvent folds one orchestrator event into the mirrored state.
func (m *Model) applyEvent(ev orchestrator.Event) {
	switch ev := ev.(type) {
	case orchestrator.TranscriptEvent:
		m.messages = ev.Messages
		m.updateViewport()
		m.viewport.GotoBottom()

	case orchestrator.StreamingEvent:
		m.streaming = ev.Active

	case orchestrator.ListeningEvent:
		m.listening = ev.Active
		if !ev.Active {
			m.partial = ""
		}

	case orchestrator.PartialTranscriptEvent:
		m.partial = ev.Text

	case orchestrator.InputEvent:
		m.textarea.SetValue(ev.Text)

	case orchestrator.RecognizedAppEvent:
		m.recognizedApp = ev.App

	case orchestrator.PendingContextEvent:
		m.hasPending = ev.Present
		m.pendingChars = ev.Chars

	case orchestrator.PendingImageEvent:
		m.hasImage = ev.Present

	case orchestrator.ErrorEvent:
		m.errText = ev.Text
	}
}

func (m *Model) lastAssistantText() string {
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].Role == models.RoleAssistant && m.messages[i].Text != "" {
			return m.messages[i].Text
		}
	}
	return ""
}

// updateViewport rebuilds the message list content.
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}

	width := m.viewport.Width - 2
	var sb strings.Builder
	for _, msg := range m.messages {
		switch msg.Role {
		case models.RoleUser:
			sb.WriteString(userLabelStyle.Render("You"))
			sb.WriteString("\n")
			sb.WriteString(msg.Text)
		case models.RoleAssistant:
			sb.WriteString(assistantLabelStyle.Render("Nova"))
			sb.WriteString("\n")
			if msg.Text == "" {
				sb.WriteString(partialStyle.Render("..."))
			} else if rendered, err := render.MarkdownWithWidth(msg.Text, width); err == nil {
				sb.WriteString(strings.TrimRight(rendered, "\n"))
			} else {
				sb.WriteString(msg.Text)
			}
		}
		sb.WriteString("\n\n")
	}
	m.viewport.SetContent(sb.String())
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	var sections []string
	contentWidth := m.width - 4

	sections = append(sections, m.renderHeader(contentWidth))

	var messagesContent string
	if len(m.messages) == 0 {
		messagesContent = m.renderWelcome()
	} else {
		messagesContent = m.viewport.View()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messagesContent))

	sections = append(sections, m.renderInput(contentWidth))
	sections = append(sections, m.renderStatusBar(contentWidth))

	if m.errText != "" {
		sections = append(sections, errorStyle.Render("  ⚠ "+m.errText))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader(width int) string {
	parts := []string{titleStyle.Render("✦ Nova")}

	if m.recognizedApp != nil {
		parts = append(parts,
			hintStyle.Render("  •  "),
			subtitleStyle.Render(m.recognizedApp.Name))
	}
	if m.autoCapture {
		parts = append(parts,
			hintStyle.Render("  •  "),
			contextChipStyle.Render("auto-capture"))
	}
	if m.muted {
		parts = append(parts,
			hintStyle.Render("  •  "),
			subtitleStyle.Render("muted"))
	}
	if m.listening {
		parts = append(parts,
			hintStyle.Render("  •  "),
			listeningStyle.Render("● listening"))
	}

	return headerStyle.Width(width).Render(
		lipgloss.JoinHorizontal(lipgloss.Center, parts...))
}

func (m Model) renderInput(width int) string {
	var lines []string

	if m.hasPending {
		chip := fmt.Sprintf("⌁ context attached (%d chars)", m.pendingChars)
		if m.recognizedApp != nil {
			chip += " from " + m.recognizedApp.Name
		}
		lines = append(lines, contextChipStyle.Render(chip))
	}
	if m.hasImage {
		lines = append(lines, contextChipStyle.Render("⌁ screenshot attached"))
	}

	if m.streaming {
		lines = append(lines, loadingStyle.Render(m.spinner.View()+" thinking..."))
	} else {
		label := inputLabelStyle.Render("You")
		if m.listening && m.partial != "" && strings.TrimSpace(m.textarea.Value()) == "" {
			lines = append(lines, label+"  "+partialStyle.Render(m.partial))
		} else {
			lines = append(lines, label)
		}
		lines = append(lines, m.textarea.View())
	}

	return inputPanelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) renderStatusBar(width int) string {
	keys := []struct{ key, desc string }{
		{"enter", "send"},
		{"^r", "mic"},
		{"^g", "auto-capture"},
		{"^s", "attach selection"},
		{"^p", "snip"},
		{"^x", "clear context"},
		{"^o", "mute"},
		{"^y", "copy"},
		{"esc", "quit"},
	}

	var parts []string
	for _, k := range keys {
		parts = append(parts, statusKeyStyle.Render(k.key)+statusDescStyle.Render(" "+k.desc))
	}
	bar := strings.Join(parts, statusDescStyle.Render("  "))
	return lipgloss.NewStyle().Width(width).Render(" " + bar)
}

func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	height := m.viewport.Height

	title := welcomeTitleStyle.Width(width).Render("Welcome to Nova")
	subtitle := welcomeStyle.Width(width).Render(
		"Type a message, press ctrl+r to speak, or enable auto-capture with ctrl+g")

	content := lipgloss.JoinVertical(lipgloss.Center, "", title, "", subtitle)
	topPadding := (height - lipgloss.Height(content)) / 2
	if topPadding < 0 {
		topPadding = 0
	}
	return strings.Repeat("\n", topPadding) + content
}
