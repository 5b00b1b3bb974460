package chat

// DomainEvent is pushed to live connections.
type DomainEvent interface {
	RoomID() RoomID
}

type MessagePosted struct {
	Room     RoomID
	SenderID string
	Message  Message
}

func (m MessagePosted) RoomID() RoomID {
	return m.Room
}

// SendRejected is written back to the connection whose payload could not be stored.
type SendRejected struct {
	Room   RoomID
	Code   string
	Detail string
}

func (s SendRejected) RoomID() RoomID {
	return s.Room
}
