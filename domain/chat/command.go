package chat

import "github.com/google/uuid"

type SendMessageCommand struct {
	RoomID   RoomID
	SenderID string
	Content  string
	Type     string
}

type GetHistoryCommand struct {
	RoomID RoomID
	UserID string
	Limit  int
	// BeforeID is nil to fetch the most recent messages.
	BeforeID *uuid.UUID
}

type CreateRoomCommand struct {
	ListingID string
	SeekerID  string
	OwnerID   string
}
