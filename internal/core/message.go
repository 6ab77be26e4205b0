package core

import "time"

// MessageType classifies message content.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
)

// Message is the domain model for a chat message. Addressing is exclusive:
// a message carries either a room name or a receiver id, never both.
type Message struct {
	ID         int64
	SenderID   int64
	SenderName string
	ReceiverID *int64
	Room       string
	Content    string
	Type       MessageType
	FileURL    string
	FileName   string
	Read       bool
	ReadAt     *time.Time
	CreatedAt  time.Time
}

// Direct reports whether the message is addressed to a single user.
func (m *Message) Direct() bool {
	return m.ReceiverID != nil
}
