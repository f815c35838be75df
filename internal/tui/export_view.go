package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/siba-ai/siba-chat/internal/tui/models"
	"gopkg.in/yaml.v3"
)

// Transcript is a conversation as written to disk.
type Transcript struct {
	Author     string               `yaml:"author"`
	ExportedAt time.Time            `yaml:"exported_at"`
	Messages   []models.MessageItem `yaml:"messages"`
}

// BackToChatMsg signals to leave the export view.
type BackToChatMsg struct{}

// ExportView handles prompting for a filename and exporting a conversation
type ExportView struct {
	transcript   Transcript
	textInput    textinput.Model
	now          func() time.Time
	err          error
	width        int
	height       int
	exportStatus string
	Success      bool
}

// NewExportView creates a new export view
func NewExportView(transcript Transcript) ExportView {
	ti := textinput.New()
	ti.Placeholder = "conversation.yaml"
	ti.Focus()
	ti.Width = 40

	return ExportView{
		transcript: transcript,
		textInput:  ti,
		now:        time.Now,
	}
}

// Init initializes the export view
func (m ExportView) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the export view
func (m ExportView) Update(msg tea.Msg) (ExportView, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, backToChat
		case "enter":
			if len(m.transcript.Messages) == 0 {
				m.exportStatus = "Nothing to export yet"
				return m, nil
			}
			if strings.TrimSpace(m.textInput.Value()) == "" {
				m.exportStatus = "Please enter a filename"
				return m, nil
			}

			filename := strings.TrimSpace(m.textInput.Value())
			if !strings.HasSuffix(filename, ".yaml") && !strings.HasSuffix(filename, ".yml") {
				filename += ".yaml"
			}

			m.transcript.ExportedAt = m.now()
			if err := ExportTranscriptToYamlFile(m.transcript, filename); err != nil {
				m.err = err
				m.exportStatus = fmt.Sprintf("Error exporting: %v", err)
				return m, nil
			}

			m.Success = true
			m.exportStatus = completeMessageStyle(fmt.Sprintf("Successfully exported to %s", filename))
			// Wait for 1 second, then go back to the conversation
			return m, tea.Tick(time.Second, func(time.Time) tea.Msg {
				return BackToChatMsg{}
			})
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// Status returns the last export outcome shown to the user.
func (m ExportView) Status() string {
	return m.exportStatus
}

// View renders the export view
func (m ExportView) View() string {
	var sb strings.Builder

	// Calculate vertical centering
	verticalPadding := (m.height - 6) / 2
	for i := 0; i < verticalPadding; i++ {
		sb.WriteString("\n")
	}

	title := titleStyle.Render("Export Conversation")
	sb.WriteString(centerText(title, m.width))
	sb.WriteString("\n\n")

	prompt := fmt.Sprintf("Enter filename to export %s:", pluralize(len(m.transcript.Messages), "message"))
	sb.WriteString(centerText(prompt, m.width))
	sb.WriteString("\n")

	input := m.textInput.View()
	sb.WriteString(centerText(input, m.width))
	sb.WriteString("\n\n")

	if m.exportStatus != "" {
		sb.WriteString(centerText(m.exportStatus, m.width))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(centerText("(esc) Back to chat | (enter) Export", m.width))

	return sb.String()
}

func backToChat() tea.Msg {
	return BackToChatMsg{}
}

// ExportTranscriptToYamlFile writes the conversation to filename, creating
// parent directories as needed.
func ExportTranscriptToYamlFile(transcript Transcript, filename string) error {
	yamlData, err := yaml.Marshal(transcript)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(filename, yamlData, 0o644)
}

// Helper function to center text horizontally
func centerText(text string, width int) string {
	if width <= len(text) {
		return text
	}

	padding := (width - len(text)) / 2
	return strings.Repeat(" ", padding) + text
}

// pluralize returns the count and noun, pluralized for anything but one
func pluralize(count int, singular string) string {
	if count == 1 {
		return "1 " + singular
	}
	return fmt.Sprintf("%d %ss", count, singular)
}
