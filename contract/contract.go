//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"listing-chat/domain/chat"
	"reflect"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Connection is a live, registered transport session of one user.
// Push must not block longer than the given context allows.
type Connection interface {
	ID() string
	Push(ctx context.Context, e chat.DomainEvent) error
	Close() error
}

type IRegistry interface {
	Register(userID string, conn Connection)
	Deregister(userID string, conn Connection)
	LiveConnectionsOf(userID string) []Connection
	Stats() (users int, connections int)
}

type IRoomDirectory interface {
	GetOrCreateRoom(ctx context.Context, listingID, userA, userB string) (chat.Room, error)
	GetRoom(ctx context.Context, roomID chat.RoomID) (chat.Room, error)
	ListRoomsForUser(ctx context.Context, userID string) ([]chat.Room, error)
}

type IMessageStore interface {
	AppendMessage(ctx context.Context, roomID chat.RoomID, senderID, content, messageType string) (chat.Message, error)
	GetHistory(ctx context.Context, roomID chat.RoomID, limit int, beforeID *uuid.UUID) ([]chat.Message, error)
}

type IReadTracker interface {
	MarkRoomRead(ctx context.Context, roomID chat.RoomID, userID string) error
	UnreadCount(ctx context.Context, roomID chat.RoomID, userID string) (int, error)
	UnreadCountsForUser(ctx context.Context, userID string) (map[chat.RoomID]int, error)
}

type IBroadcaster interface {
	Broadcast(ctx context.Context, roomID chat.RoomID, message chat.Message, senderID string)
	Forget(conn Connection)
}

// IModerator masks banned words, returning the words it found.
type IModerator interface {
	Censor(content string) (string, []string)
}
