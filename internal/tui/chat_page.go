package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/siba-ai/siba-chat/internal/tui/models"
)

// DefaultReplyDelay is how long the assistant takes to answer.
const DefaultReplyDelay = 700 * time.Millisecond

const botName = "SIBA AI Assistant"

// chatKeyMap holds key bindings for the chat actions.
type chatKeyMap struct {
	send   key.Binding
	export key.Binding
	scroll key.Binding
}

func newChatKeyMap() *chatKeyMap {
	return &chatKeyMap{
		send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Send"),
		),
		export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "Export conversation"),
		),
		scroll: key.NewBinding(
			key.WithKeys("up", "down", "pgup", "pgdown", "ctrl+x"),
		),
	}
}

// OpenExportMsg asks the app to show the export view.
type OpenExportMsg struct {
	Transcript Transcript
}

type botReplyMsg struct {
	channel string
	text    string
}

// ChatPage is a conversation with the assistant: a message list above a
// single-line input.
type ChatPage struct {
	channel    string
	list       list.Model
	input      textinput.Model
	keys       *chatKeyMap
	author     string
	replyDelay time.Duration
	nextID     int
	now        func() time.Time
	width      int
	height     int
}

// NewChatPage creates an empty conversation. Replies are routed by channel,
// so two pages never answer each other's messages.
func NewChatPage(channel, title string, replyDelay time.Duration) ChatPage {
	keys := newChatKeyMap()
	delegateKeys := newDelegateKeyMap()

	l := list.New(nil, newMessageDelegate(delegateKeys), 0, 0)
	l.Title = titleStyle.Render(title)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.DisableQuitKeybindings()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.send, keys.export}
	}

	ti := textinput.New()
	ti.Placeholder = "Ask anything about SIBA…"
	ti.CharLimit = 2000
	ti.Focus()

	return ChatPage{
		channel:    channel,
		list:       l,
		input:      ti,
		keys:       keys,
		author:     "You",
		replyDelay: replyDelay,
		now:        time.Now,
	}
}

// SetAuthor names the sender of the user's messages.
func (m ChatPage) SetAuthor(name string) ChatPage {
	if name == "" {
		name = "You"
	}
	m.author = name
	return m
}

func (m ChatPage) Init() tea.Cmd {
	return textinput.Blink
}

func (m ChatPage) Update(msg tea.Msg) (ChatPage, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.send):
			return m.send()
		case key.Matches(msg, m.keys.export):
			transcript := m.Transcript()
			return m, func() tea.Msg {
				return OpenExportMsg{Transcript: transcript}
			}
		case key.Matches(msg, m.keys.scroll):
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}

	case botReplyMsg:
		if msg.channel != m.channel {
			return m, nil
		}
		var cmd tea.Cmd
		m, cmd = m.appendMessage(models.SenderBot, botName, fmt.Sprintf(
			"I received your inquiry: \"%s\". As the SIBA AI Assistant, I can provide information on admissions, courses, and schedules.",
			msg.text,
		))
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h, v := docStyle.GetFrameSize()
		// two rows for the input and its separator
		m.list.SetSize(msg.Width-h, msg.Height-v-2)
		m.input.Width = max(10, msg.Width-h-4)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m ChatPage) send() (ChatPage, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	m.input.Reset()

	m, cmd := m.appendMessage(models.SenderUser, m.author, text)
	channel := m.channel
	reply := tea.Tick(m.replyDelay, func(time.Time) tea.Msg {
		return botReplyMsg{channel: channel, text: text}
	})
	return m, tea.Batch(cmd, reply)
}

func (m ChatPage) appendMessage(sender models.Sender, author, text string) (ChatPage, tea.Cmd) {
	m.nextID++
	item := models.MessageItem{
		ID:     m.nextID,
		Sender: sender,
		Author: author,
		Text:   text,
		SentAt: m.now(),
	}
	cmd := m.list.InsertItem(len(m.list.Items()), item)
	m.list.Select(len(m.list.Items()) - 1)
	return m, cmd
}

// Messages returns the conversation in order.
func (m ChatPage) Messages() []models.MessageItem {
	items := m.list.Items()
	result := make([]models.MessageItem, 0, len(items))
	for _, item := range items {
		if msg, ok := item.(models.MessageItem); ok {
			result = append(result, msg)
		}
	}
	return result
}

// Transcript snapshots the conversation for export.
func (m ChatPage) Transcript() Transcript {
	return Transcript{
		Author:   m.author,
		Messages: m.Messages(),
	}
}

// View renders the conversation, or the welcome screen before the first message.
func (m ChatPage) View() string {
	if len(m.list.Items()) == 0 {
		content := lipgloss.JoinVertical(
			lipgloss.Center,
			titleStyle.Render("SIBA AI ASSISTANT"),
			"",
			subtitleStyle.Render("Ask about admissions, faculty, or policies at SIBA."),
			"",
			m.input.View(),
		)
		if m.width == 0 {
			return docStyle.Render(content)
		}
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}

	return docStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		m.list.View(),
		"",
		m.input.View(),
	))
}
