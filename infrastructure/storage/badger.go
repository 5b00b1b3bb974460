package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"listing-chat/domain/chat"
	chaterrors "listing-chat/errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// maxTxnAttempts bounds how many times a read-write transaction is replayed
// after losing a commit race (badger.ErrConflict).
const maxTxnAttempts = 64

type diskRoom struct {
	ID            string    `json:"id"`
	ListingID     string    `json:"listing_id"`
	Participants  [2]string `json:"participants"`
	CreatedAt     int64     `json:"created_at"`
	LastMessageAt int64     `json:"last_message_at"`
}

type diskMessage struct {
	ID        string `json:"id"`
	Room      string `json:"room_id"`
	SenderID  string `json:"sender_id"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// update runs fn in a serializable read-write transaction.
// Conflicting commits are replayed, so fn must derive everything it writes from what it reads.
func update(ctx context.Context, db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func view(ctx context.Context, db *badger.DB, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return db.View(fn)
}

// storageError keeps domain errors as they are and classifies everything else
// coming from badger as ErrStorageUnavailable.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, chaterrors.ErrStorageUnavailable, err)
}

func isDomainError(err error) bool {
	return lo.ContainsBy([]error{
		chaterrors.ErrRoomNotFound,
		chaterrors.ErrNotParticipant,
		chaterrors.ErrMessageNotFound,
		chaterrors.ErrInvalidParticipants,
		chaterrors.ErrStorageUnavailable,
	}, func(target error) bool {
		return errors.Is(err, target)
	})
}

func getRoom(txn *badger.Txn, roomID chat.RoomID) (chat.Room, error) {
	item, err := txn.Get(roomKey(roomID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chat.Room{}, fmt.Errorf("room %s: %w", roomID, chaterrors.ErrRoomNotFound)
	}
	if err != nil {
		return chat.Room{}, err
	}
	var dr diskRoom
	if err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &dr)
	}); err != nil {
		return chat.Room{}, err
	}
	return toRoom(dr), nil
}

func putRoom(txn *badger.Txn, room chat.Room) error {
	bytes, err := json.Marshal(fromRoom(room))
	if err != nil {
		return err
	}
	return txn.Set(roomKey(room.ID), bytes)
}

func getReadCursor(txn *badger.Txn, roomID chat.RoomID, userID string) (*time.Time, error) {
	item, err := txn.Get(cursorKey(roomID, userID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	at, err := decodeTimestamp(raw)
	if err != nil {
		return nil, err
	}
	return &at, nil
}

func decodeMessage(item *badger.Item) (chat.Message, error) {
	var dm diskMessage
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &dm)
	}); err != nil {
		return chat.Message{}, err
	}
	return toMessage(dm)
}

func fromRoom(room chat.Room) diskRoom {
	return diskRoom{
		ID:            string(room.ID),
		ListingID:     room.ListingID,
		Participants:  room.Participants,
		CreatedAt:     room.CreatedAt.UnixNano(),
		LastMessageAt: room.LastMessageAt.UnixNano(),
	}
}

func toRoom(dr diskRoom) chat.Room {
	return chat.Room{
		ID:            chat.RoomID(dr.ID),
		ListingID:     dr.ListingID,
		Participants:  dr.Participants,
		CreatedAt:     time.Unix(0, dr.CreatedAt).UTC(),
		LastMessageAt: time.Unix(0, dr.LastMessageAt).UTC(),
	}
}

func fromMessage(message chat.Message) diskMessage {
	return diskMessage{
		ID:        message.ID.String(),
		Room:      string(message.RoomID),
		SenderID:  message.SenderID,
		Content:   message.Content,
		Type:      message.Type,
		Timestamp: message.Timestamp.UnixNano(),
	}
}

func toMessage(dm diskMessage) (chat.Message, error) {
	parsedID, err := uuid.Parse(dm.ID)
	if err != nil {
		return chat.Message{}, err
	}
	return chat.Message{
		ID:        parsedID,
		RoomID:    chat.RoomID(dm.Room),
		SenderID:  dm.SenderID,
		Content:   dm.Content,
		Type:      dm.Type,
		Timestamp: time.Unix(0, dm.Timestamp).UTC(),
		ReadBy:    []string{dm.SenderID},
	}, nil
}
