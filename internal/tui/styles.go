// Package tui provides the terminal user interface for nova.
package tui

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	colorPrimary   = lipgloss.Color("#7aa2f7")
	colorSecondary = lipgloss.Color("#bb9af7")
	colorAccent    = lipgloss.Color("#7dcfff")
	colorWarning   = lipgloss.Color("#e0af68")
	colorError     = lipgloss.Color("#f7768e")
	colorSuccess   = lipgloss.Color("#9ece6a")
	colorText      = lipgloss.Color("#c0caf5")
	colorTextDim   = lipgloss.Color("#565f89")
	colorBorder    = lipgloss.Color("#3b4261")
)

var (
	headerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	messagesAreaStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorBorder).
				Padding(0, 1)

	userLabelStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	inputPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	inputLabelStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	contextChipStyle = lipgloss.NewStyle().
				Foreground(colorAccent)

	listeningStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	partialStyle = lipgloss.NewStyle().
			Foreground(colorTextDim).
			Italic(true)

	loadingStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	statusKeyStyle = lipgloss.NewStyle().
			Foreground(colorAccent)

	statusDescStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(colorTextDim).
			Align(lipgloss.Center)

	welcomeTitleStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true).
				Align(lipgloss.Center)
)
