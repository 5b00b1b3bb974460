// Package chat contains core concepts of the listing chat.
// This file defines Message events and related rules.
// Messages are immutable once stored, only their read state grows.
package chat

import (
	"time"

	"github.com/google/uuid"
)

const DefaultMessageType = "text"

// Message represents a stored chat message.
// ReadBy always contains the sender.
type Message struct {
	ID        uuid.UUID
	RoomID    RoomID
	SenderID  string
	Content   string
	Type      string
	Timestamp time.Time
	ReadBy    []string
}

// IsReadBy reports whether a user acknowledged the message, given the user's read cursor.
// A nil cursor means the user never marked the room as read.
func (m Message) IsReadBy(userID string, cursor *time.Time) bool {
	if m.SenderID == userID {
		return true
	}
	return cursor != nil && !m.Timestamp.After(*cursor)
}
