package tui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor = lipgloss.Color("#ea6645")
	mutedColor  = lipgloss.AdaptiveColor{Light: "#626262", Dark: "#A49FA5"}

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#0b2e59")).
			Bold(true).
			Padding(0, 1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#dc2626"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(1, 2).
			Width(panelWidth)

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#374151")).
			Background(lipgloss.Color("#f3f4f6")).
			Padding(0, 2)

	primaryButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#ffffff")).
				Background(accentColor).
				Bold(true).
				Padding(0, 2)

	disabledButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#ffffff")).
				Background(lipgloss.Color("#d1d5db")).
				Padding(0, 2)

	statusMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#ea6645", Dark: "#f08a70"}).
				Render

	completeMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#56FF4E")).
				Render
)
var docStyle = lipgloss.NewStyle().Margin(1, 2)
