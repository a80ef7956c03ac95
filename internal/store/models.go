// Package store reads the message history database maintained by the
// WhatsApp bridge. The bridge owns all writes during normal operation;
// the upsert methods exist for seeding and tests.
package store

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a chat or message does not exist.
var ErrNotFound = errors.New("not found")

// Contact is a direct-chat peer derived from the chats table.
type Contact struct {
	JID   string `json:"jid"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Chat is one conversation, optionally carrying its latest message.
type Chat struct {
	JID          string    `json:"jid"`
	Name         string    `json:"name"`
	LastActive   time.Time `json:"last_active"`
	LastMessage  string    `json:"last_message,omitempty"`
	LastSender   string    `json:"last_sender,omitempty"`
	LastIsFromMe bool      `json:"last_is_from_me,omitempty"`
}

// Message is one stored message joined with its chat's name.
type Message struct {
	ID        string    `json:"id"`
	ChatJID   string    `json:"chat_jid"`
	ChatName  string    `json:"chat_name,omitempty"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	IsFromMe  bool      `json:"is_from_me"`
	MediaType string    `json:"media_type,omitempty"`
	Filename  string    `json:"filename,omitempty"`
}

// MessageContext is a message with its chronological neighbors.
type MessageContext struct {
	Message Message   `json:"message"`
	Before  []Message `json:"before"`
	After   []Message `json:"after"`
}

// MessageFilter narrows a message listing. Zero values mean "no filter".
type MessageFilter struct {
	After   time.Time
	Before  time.Time
	Sender  string
	ChatJID string
	Query   string
	Limit   int
	Page    int
}

// ChatFilter narrows a chat listing.
type ChatFilter struct {
	Query              string
	Limit              int
	Page               int
	IncludeLastMessage bool
	SortBy             string // "last_active" (default) or "name"
}

// Format renders the message as one history line, the form the message
// listing tools return.
func (m *Message) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", m.Timestamp.Format("2006-01-02 15:04:05"))
	if m.ChatName != "" {
		fmt.Fprintf(&b, " Chat: %s", m.ChatName)
	}
	sender := m.Sender
	if m.IsFromMe {
		sender = "Me"
	}
	fmt.Fprintf(&b, " From: %s", sender)
	if m.MediaType != "" {
		fmt.Fprintf(&b, " [%s - ID: %s - Chat: %s]", m.MediaType, m.ID, m.ChatJID)
	}
	fmt.Fprintf(&b, ": %s", m.Content)
	return b.String()
}

// FormatMessages renders a listing as newline-joined history lines.
func FormatMessages(messages []Message) string {
	if len(messages) == 0 {
		return "No messages found"
	}
	lines := make([]string, len(messages))
	for i := range messages {
		lines[i] = messages[i].Format()
	}
	return strings.Join(lines, "\n")
}
