package storage

import (
	"context"
	"fmt"
	"listing-chat/domain/chat"
	chaterrors "listing-chat/errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ReadTracker keeps one read cursor per (room, user): the timestamp of the most recent
// message acknowledged by the user. Marking a room read is a single write whatever
// the size of the room; unread counting only walks the messages newer than the cursor.
type ReadTracker struct {
	db  *badger.DB
	log *slog.Logger
}

func NewReadTracker(db *badger.DB, log *slog.Logger) *ReadTracker {
	return &ReadTracker{db: db, log: log}
}

// MarkRoomRead moves the user's cursor to the last message of the room.
// The cursor never goes backwards, so calling it again is a no-op.
func (r *ReadTracker) MarkRoomRead(ctx context.Context, roomID chat.RoomID, userID string) error {
	var moved bool
	err := update(ctx, r.db, func(txn *badger.Txn) error {
		moved = false
		room, err := getRoom(txn, roomID)
		if err != nil {
			return err
		}
		if !room.HasParticipant(userID) {
			return fmt.Errorf("user %s in room %s: %w", userID, roomID, chaterrors.ErrNotParticipant)
		}
		cursor, err := getReadCursor(txn, roomID, userID)
		if err != nil {
			return err
		}
		if cursor != nil && !room.LastMessageAt.After(*cursor) {
			return nil
		}
		moved = true
		return txn.Set(cursorKey(roomID, userID), []byte(encodeTimestamp(room.LastMessageAt)))
	})
	if err != nil {
		return storageError("mark room read", err)
	}
	if moved {
		r.log.Debug("Read cursor moved", "room_id", roomID, "user_id", userID)
	}
	return nil
}

// UnreadCount counts the messages of the room the user has not acknowledged.
func (r *ReadTracker) UnreadCount(ctx context.Context, roomID chat.RoomID, userID string) (int, error) {
	var count int
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		room, err := getRoom(txn, roomID)
		if err != nil {
			return err
		}
		if !room.HasParticipant(userID) {
			return fmt.Errorf("user %s in room %s: %w", userID, roomID, chaterrors.ErrNotParticipant)
		}
		count, err = countUnread(txn, roomID, userID)
		return err
	})
	if err != nil {
		return 0, storageError("unread count", err)
	}
	return count, nil
}

// UnreadCountsForUser scans every room of the user.
// Rooms without unread messages are left out of the result.
func (r *ReadTracker) UnreadCountsForUser(ctx context.Context, userID string) (map[chat.RoomID]int, error) {
	counts := make(map[chat.RoomID]int)
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		roomIDs, err := roomsOf(txn, userID)
		if err != nil {
			return err
		}
		for _, roomID := range roomIDs {
			count, err := countUnread(txn, roomID, userID)
			if err != nil {
				return err
			}
			if count > 0 {
				counts[roomID] = count
			}
		}
		return nil
	})
	if err != nil {
		return nil, storageError("unread counts", err)
	}
	return counts, nil
}

func countUnread(txn *badger.Txn, roomID chat.RoomID, userID string) (int, error) {
	cursor, err := getReadCursor(txn, roomID, userID)
	if err != nil {
		return 0, err
	}

	prefix := messageKeyPrefix(roomID)
	seekKey := append([]byte{}, prefix...)
	if cursor != nil {
		// First possible timestamp after the cursor
		seekKey = append(seekKey, encodeTimestamp(cursor.Add(time.Nanosecond))...)
	}

	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	count := 0
	for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
		message, err := decodeMessage(it.Item())
		if err != nil {
			return 0, err
		}
		if !message.IsReadBy(userID, cursor) {
			count++
		}
	}
	return count, nil
}
