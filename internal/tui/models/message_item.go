package models

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// MessageItem is one chat message in the transcript list.
// Implements list.Item
type MessageItem struct {
	ID     int       `yaml:"id"`
	Sender Sender    `yaml:"sender"`
	Author string    `yaml:"author"`
	Text   string    `yaml:"text"`
	SentAt time.Time `yaml:"sent_at"`
}

var (
	userAuthorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f56a96")).Bold(true)
	botAuthorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#56b6f2")).Bold(true)
)

func (i MessageItem) Title() string {
	if i.Sender == SenderBot {
		return botAuthorStyle.Render(i.Author)
	}
	return userAuthorStyle.Render(i.Author)
}

func (i MessageItem) Description() string {
	return i.Text
}

func (i MessageItem) FilterValue() string {
	return i.Author + " " + i.Text
}
