package storage

import (
	"context"
	"errors"
	"fmt"
	"listing-chat/domain/chat"
	chaterrors "listing-chat/errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// RoomRepository is the room directory backed by BadgerDB.
type RoomRepository struct {
	db  *badger.DB
	log *slog.Logger
	now func() time.Time
}

func NewRoomRepository(db *badger.DB, log *slog.Logger) *RoomRepository {
	return &RoomRepository{db: db, log: log, now: time.Now}
}

// GetOrCreateRoom returns the room of a listing for an unordered pair of users,
// creating it when it does not exist yet.
// The dedup key is read and written in the same transaction: two concurrent creators
// conflict at commit time, and the loser replays the transaction and reads the winner's room.
func (r *RoomRepository) GetOrCreateRoom(ctx context.Context, listingID, userA, userB string) (chat.Room, error) {
	if strings.TrimSpace(listingID) == "" || strings.TrimSpace(userA) == "" ||
		strings.TrimSpace(userB) == "" || userA == userB {
		return chat.Room{}, fmt.Errorf("listing %q with %q and %q: %w",
			listingID, userA, userB, chaterrors.ErrInvalidParticipants)
	}
	pair := chat.SortedPair(userA, userB)
	dedupKey := roomDedupKey(listingID, pair)

	var room chat.Room
	var created bool
	err := update(ctx, r.db, func(txn *badger.Txn) error {
		created = false
		item, err := txn.Get(dedupKey)
		switch {
		case err == nil:
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			room, err = getRoom(txn, chat.RoomID(raw))
			return err
		case errors.Is(err, badger.ErrKeyNotFound):
			room = chat.NewRoom(chat.RoomID(uuid.NewString()), listingID, pair[0], pair[1], r.now().UTC())
			if err := txn.Set(dedupKey, []byte(room.ID)); err != nil {
				return err
			}
			if err := putRoom(txn, room); err != nil {
				return err
			}
			for _, participant := range room.Participants {
				if err := txn.Set(memberKey(participant, room.ID), []byte{}); err != nil {
					return err
				}
			}
			created = true
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return chat.Room{}, storageError("get or create room", err)
	}
	if created {
		r.log.Info("Room created",
			"room_id", room.ID,
			"listing_id", listingID,
			"participants", room.Participants)
	}
	return room, nil
}

func (r *RoomRepository) GetRoom(ctx context.Context, roomID chat.RoomID) (chat.Room, error) {
	var room chat.Room
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		var err error
		room, err = getRoom(txn, roomID)
		return err
	})
	if err != nil {
		return chat.Room{}, storageError("get room", err)
	}
	return room, nil
}

// ListRoomsForUser scans the participant index, most recently active room first.
func (r *RoomRepository) ListRoomsForUser(ctx context.Context, userID string) ([]chat.Room, error) {
	var rooms []chat.Room
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		roomIDs, err := roomsOf(txn, userID)
		if err != nil {
			return err
		}
		for _, roomID := range roomIDs {
			room, err := getRoom(txn, roomID)
			if err != nil {
				return err
			}
			rooms = append(rooms, room)
		}
		return nil
	})
	if err != nil {
		return nil, storageError("list rooms", err)
	}
	slices.SortFunc(rooms, func(a, b chat.Room) int {
		return b.LastMessageAt.Compare(a.LastMessageAt)
	})
	return rooms, nil
}

func roomsOf(txn *badger.Txn, userID string) ([]chat.RoomID, error) {
	prefix := memberKeyPrefix(userID)
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	defer it.Close()

	var roomIDs []chat.RoomID
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		roomID, err := roomIDFromMemberKey(it.Item().Key(), userID)
		if err != nil {
			return nil, err
		}
		roomIDs = append(roomIDs, roomID)
	}
	return roomIDs, nil
}
