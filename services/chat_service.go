//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"errors"
	"fmt"
	"listing-chat/contract"
	"listing-chat/domain/chat"
	chaterrors "listing-chat/errors"
	"log/slog"
)

type IChatService interface {
	CreateRoom(ctx context.Context, cmd chat.CreateRoomCommand) (chat.Room, error)
	ListRooms(ctx context.Context, userID string) ([]chat.Room, error)
	History(ctx context.Context, cmd chat.GetHistoryCommand) ([]chat.Message, error)
	SendMessage(ctx context.Context, cmd chat.SendMessageCommand) (chat.Message, error)
	MarkRead(ctx context.Context, roomID chat.RoomID, userID string) error
	UnreadCount(ctx context.Context, roomID chat.RoomID, userID string) (int, error)
	UnreadCounts(ctx context.Context, userID string) (map[chat.RoomID]int, error)
	Connect(ctx context.Context, roomID chat.RoomID, userID string, conn contract.Connection) error
	Disconnect(userID string, conn contract.Connection)
}

type HistoryLimits struct {
	Default int
	Max     int
}

// ChatService is built once at startup and shared by the REST and websocket surfaces.
type ChatService struct {
	log         *slog.Logger
	directory   contract.IRoomDirectory
	store       contract.IMessageStore
	tracker     contract.IReadTracker
	registry    contract.IRegistry
	broadcaster contract.IBroadcaster
	moderator   contract.IModerator
	limits      HistoryLimits
}

func NewChatService(
	log *slog.Logger,
	directory contract.IRoomDirectory,
	store contract.IMessageStore,
	tracker contract.IReadTracker,
	registry contract.IRegistry,
	broadcaster contract.IBroadcaster,
	limits HistoryLimits,
) *ChatService {
	return &ChatService{
		log:         log,
		directory:   directory,
		store:       store,
		tracker:     tracker,
		registry:    registry,
		broadcaster: broadcaster,
		limits:      limits,
	}
}

// WithModerator masks banned words of every message before it is stored.
func (s *ChatService) WithModerator(moderator contract.IModerator) *ChatService {
	s.moderator = moderator
	return s
}

func (s *ChatService) CreateRoom(ctx context.Context, cmd chat.CreateRoomCommand) (chat.Room, error) {
	return s.directory.GetOrCreateRoom(ctx, cmd.ListingID, cmd.SeekerID, cmd.OwnerID)
}

func (s *ChatService) ListRooms(ctx context.Context, userID string) ([]chat.Room, error) {
	return s.directory.ListRoomsForUser(ctx, userID)
}

// History returns the newest messages first.
// Rooms the user does not belong to are reported as missing.
func (s *ChatService) History(ctx context.Context, cmd chat.GetHistoryCommand) ([]chat.Message, error) {
	if err := s.checkMembership(ctx, cmd.RoomID, cmd.UserID); err != nil {
		if errors.Is(err, chaterrors.ErrNotParticipant) {
			return nil, fmt.Errorf("room %s: %w", cmd.RoomID, chaterrors.ErrRoomNotFound)
		}
		return nil, err
	}
	return s.store.GetHistory(ctx, cmd.RoomID, s.clampLimit(cmd.Limit), cmd.BeforeID)
}

// SendMessage stores the message then fans it out. Nothing is broadcast when the store fails.
func (s *ChatService) SendMessage(ctx context.Context, cmd chat.SendMessageCommand) (chat.Message, error) {
	if s.moderator != nil {
		content, words := s.moderator.Censor(cmd.Content)
		if len(words) > 0 {
			s.log.Info("Message censored", "room_id", cmd.RoomID, "user_id", cmd.SenderID, "words", len(words))
			cmd.Content = content
		}
	}
	message, err := s.store.AppendMessage(ctx, cmd.RoomID, cmd.SenderID, cmd.Content, cmd.Type)
	if err != nil {
		return chat.Message{}, err
	}
	// The message is persisted, deliver it even if the sender is going away.
	s.broadcaster.Broadcast(context.WithoutCancel(ctx), cmd.RoomID, message, cmd.SenderID)
	return message, nil
}

func (s *ChatService) MarkRead(ctx context.Context, roomID chat.RoomID, userID string) error {
	return s.tracker.MarkRoomRead(ctx, roomID, userID)
}

func (s *ChatService) UnreadCount(ctx context.Context, roomID chat.RoomID, userID string) (int, error) {
	return s.tracker.UnreadCount(ctx, roomID, userID)
}

func (s *ChatService) UnreadCounts(ctx context.Context, userID string) (map[chat.RoomID]int, error) {
	return s.tracker.UnreadCountsForUser(ctx, userID)
}

// Connect registers a live connection of a room participant and marks the room read.
// On failure the connection is left unregistered.
func (s *ChatService) Connect(ctx context.Context, roomID chat.RoomID, userID string, conn contract.Connection) error {
	if err := s.checkMembership(ctx, roomID, userID); err != nil {
		return err
	}
	s.registry.Register(userID, conn)
	if err := s.tracker.MarkRoomRead(ctx, roomID, userID); err != nil {
		s.registry.Deregister(userID, conn)
		s.broadcaster.Forget(conn)
		return err
	}
	s.log.Debug("Connection registered", "room_id", roomID, "user_id", userID, "connection_id", conn.ID())
	return nil
}

func (s *ChatService) Disconnect(userID string, conn contract.Connection) {
	s.registry.Deregister(userID, conn)
	s.broadcaster.Forget(conn)
	s.log.Debug("Connection deregistered", "user_id", userID, "connection_id", conn.ID())
}

func (s *ChatService) checkMembership(ctx context.Context, roomID chat.RoomID, userID string) error {
	room, err := s.directory.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.HasParticipant(userID) {
		return fmt.Errorf("user %s in room %s: %w", userID, roomID, chaterrors.ErrNotParticipant)
	}
	return nil
}

func (s *ChatService) clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.limits.Default
	case limit > s.limits.Max:
		return s.limits.Max
	default:
		return limit
	}
}
