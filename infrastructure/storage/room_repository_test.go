package storage

import (
	"context"
	"listing-chat/domain/chat"
	chaterrors "listing-chat/errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestRoomRepository_GetOrCreateRoom_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	// Given a room created by the seeker
	created, err := f.rooms.GetOrCreateRoom(ctx, "listing-1", "seeker", "owner")
	req.NoError(err)
	req.NotEmpty(created.ID)
	req.Equal([2]string{"owner", "seeker"}, created.Participants)

	// When the owner asks for the same pair in the other order
	fetched, err := f.rooms.GetOrCreateRoom(ctx, "listing-1", "owner", "seeker")
	req.NoError(err)

	// Then the same room is returned
	req.Equal(created, fetched)

	// And another listing gives another room
	other, err := f.rooms.GetOrCreateRoom(ctx, "listing-2", "owner", "seeker")
	req.NoError(err)
	req.NotEqual(created.ID, other.ID)
}

func TestRoomRepository_GetOrCreateRoom_Concurrent_Creators(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	n := 32

	ids := make(chan chat.RoomID, n)
	errs := make(chan error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			userA, userB := "alice", "bob"
			if i%2 == 0 {
				userA, userB = userB, userA
			}
			room, err := f.rooms.GetOrCreateRoom(ctx, "listing-1", userA, userB)
			if err != nil {
				errs <- err
				return
			}
			ids <- room.ID
		}(i)
	}

	// When all of them race on the first contact
	close(start)
	wg.Wait()
	close(ids)
	close(errs)

	// Then every caller got the same room
	for err := range errs {
		req.NoError(err)
	}
	distinct := make(map[chat.RoomID]struct{})
	for id := range ids {
		distinct[id] = struct{}{}
	}
	req.Len(distinct, 1)

	// And exactly one room exists for the pair
	rooms, err := f.rooms.ListRoomsForUser(ctx, "alice")
	req.NoError(err)
	req.Len(rooms, 1)
	rooms, err = f.rooms.ListRoomsForUser(ctx, "bob")
	req.NoError(err)
	req.Len(rooms, 1)
}

func TestRoomRepository_GetOrCreateRoom_Invalid_Participants(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.rooms.GetOrCreateRoom(ctx, "listing-1", "alice", "alice")
	req.ErrorIs(err, chaterrors.ErrInvalidParticipants)

	_, err = f.rooms.GetOrCreateRoom(ctx, "listing-1", "alice", "")
	req.ErrorIs(err, chaterrors.ErrInvalidParticipants)

	_, err = f.rooms.GetOrCreateRoom(ctx, " ", "alice", "bob")
	req.ErrorIs(err, chaterrors.ErrInvalidParticipants)
}

func TestRoomRepository_GetRoom_Not_Found(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	_, err := f.rooms.GetRoom(context.Background(), "unknown")
	req.ErrorIs(err, chaterrors.ErrRoomNotFound)
	req.NotErrorIs(err, chaterrors.ErrStorageUnavailable)
}

func TestRoomRepository_ListRoomsForUser_Most_Recent_First(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.rooms.GetOrCreateRoom(ctx, "listing-1", "alice", "bob")
	req.NoError(err)
	second, err := f.rooms.GetOrCreateRoom(ctx, "listing-2", "alice", "carol")
	req.NoError(err)

	// Given a message posted in the first room after both were created
	_, err = f.messages.AppendMessage(ctx, first.ID, "bob", "still available?", "")
	req.NoError(err)

	// When alice lists her rooms
	rooms, err := f.rooms.ListRoomsForUser(ctx, "alice")
	req.NoError(err)

	// Then the active room comes first
	req.Len(rooms, 2)
	req.Equal(first.ID, rooms[0].ID)
	req.Equal(second.ID, rooms[1].ID)

	// And users sharing an id prefix do not see each other's rooms
	rooms, err = f.rooms.ListRoomsForUser(ctx, "ali")
	req.NoError(err)
	req.Empty(rooms)
}

func TestRoomRepository_Closed_Store_Is_Unavailable(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	repository := NewRoomRepository(db, logs.GetLoggerFromLevel(slog.LevelDebug))

	// Given the store is gone
	req.NoError(db.Close())

	// When a room is requested
	_, err = repository.GetRoom(context.Background(), "r1")

	// Then the failure is classified as storage unavailable
	req.ErrorIs(err, chaterrors.ErrStorageUnavailable)
}

func TestRoomRepository_Uses_Clock(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f.rooms.now = func() time.Time { return at }

	room, err := f.rooms.GetOrCreateRoom(context.Background(), "listing-1", "alice", "bob")
	req.NoError(err)
	req.Equal(at, room.CreatedAt)
	req.Equal(at, room.LastMessageAt)
}
