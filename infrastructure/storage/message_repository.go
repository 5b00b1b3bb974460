package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"listing-chat/domain/chat"
	chaterrors "listing-chat/errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// timestampTick is the minimal gap between two messages of a room.
// It keeps the order total when the clock is coarse or goes backwards.
const timestampTick = time.Microsecond

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
	now func() time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log, now: time.Now}
}

// AppendMessage persists a message at the end of the room's log.
// The room document is read and rewritten in the same transaction, which makes it the
// serialization point of the room: concurrent appends conflict on it and the loser is replayed
// with a fresh last_message_at, so timestamps are strictly increasing within a room.
func (m *MessageRepository) AppendMessage(ctx context.Context, roomID chat.RoomID,
	senderID, content, messageType string) (chat.Message, error) {
	if messageType == "" {
		messageType = chat.DefaultMessageType
	}

	var message chat.Message
	err := update(ctx, m.db, func(txn *badger.Txn) error {
		room, err := getRoom(txn, roomID)
		if err != nil {
			return err
		}
		if !room.HasParticipant(senderID) {
			return fmt.Errorf("sender %s in room %s: %w", senderID, roomID, chaterrors.ErrNotParticipant)
		}

		at := m.now().UTC()
		if earliest := room.LastMessageAt.Add(timestampTick); at.Before(earliest) {
			at = earliest
		}
		message = chat.Message{
			ID:        uuid.New(),
			RoomID:    roomID,
			SenderID:  senderID,
			Content:   content,
			Type:      messageType,
			Timestamp: at,
			ReadBy:    []string{senderID},
		}

		bytes, err := json.Marshal(fromMessage(message))
		if err != nil {
			return err
		}
		if err = txn.Set(messageKey(roomID, at, message.ID), bytes); err != nil {
			return err
		}
		if err = txn.Set(messageIDKey(roomID, message.ID), []byte(encodeTimestamp(at))); err != nil {
			return err
		}
		room.LastMessageAt = at
		return putRoom(txn, room)
	})
	if err != nil {
		return chat.Message{}, storageError("append message", err)
	}
	m.log.Debug("Message appended",
		"room_id", roomID,
		"message_id", message.ID,
		"sender_id", senderID)
	return message, nil
}

// GetHistory returns at most limit messages of a room, newest first.
// When beforeID is set, only messages strictly older than it are returned.
// ReadBy is derived from the participants' read cursors.
func (m *MessageRepository) GetHistory(ctx context.Context, roomID chat.RoomID,
	limit int, beforeID *uuid.UUID) ([]chat.Message, error) {
	var messages []chat.Message
	err := view(ctx, m.db, func(txn *badger.Txn) error {
		room, err := getRoom(txn, roomID)
		if err != nil {
			return err
		}
		if limit <= 0 {
			return nil
		}

		prefix := messageKeyPrefix(roomID)
		seekKey := append([]byte{}, prefix...)
		switch beforeID {
		case nil:
			// Start after the newest possible key then walk back in time
			seekKey = append(seekKey, maxTimestamp...)
		default:
			item, err := txn.Get(messageIDKey(roomID, *beforeID))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("message %s in room %s: %w", *beforeID, roomID, chaterrors.ErrMessageNotFound)
			}
			if err != nil {
				return err
			}
			ts, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			// "msg:{room}:{ts}" sorts before "msg:{room}:{ts}:{id}", so the reverse seek
			// lands on the first message strictly older than beforeID
			seekKey = append(seekKey, ts...)
		}

		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(seekKey); it.ValidForPrefix(prefix) && len(messages) < limit; it.Next() {
			message, err := decodeMessage(it.Item())
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}

		return deriveReadBy(txn, room, messages)
	})
	if err != nil {
		return nil, storageError("get history", err)
	}
	return messages, nil
}

// deriveReadBy fills ReadBy from the peer's read cursor.
func deriveReadBy(txn *badger.Txn, room chat.Room, messages []chat.Message) error {
	cursors := make(map[string]*time.Time, len(room.Participants))
	for _, participant := range room.Participants {
		cursor, err := getReadCursor(txn, room.ID, participant)
		if err != nil {
			return err
		}
		cursors[participant] = cursor
	}
	for i := range messages {
		readBy := []string{messages[i].SenderID}
		for _, participant := range room.Participants {
			if participant != messages[i].SenderID && messages[i].IsReadBy(participant, cursors[participant]) {
				readBy = append(readBy, participant)
			}
		}
		messages[i].ReadBy = readBy
	}
	return nil
}
