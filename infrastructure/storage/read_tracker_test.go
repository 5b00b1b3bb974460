package storage

import (
	"context"
	"listing-chat/domain/chat"
	chaterrors "listing-chat/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadTracker_Unread_Then_Read(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	room, err := f.rooms.GetOrCreateRoom(ctx, "listing-1", "alice", "bob")
	req.NoError(err)

	// Given a fresh room with one message from the other participant
	_, err = f.messages.AppendMessage(ctx, room.ID, "alice", "hi", "")
	req.NoError(err)

	count, err := f.tracker.UnreadCount(ctx, room.ID, "bob")
	req.NoError(err)
	req.Equal(1, count)

	// And the sender has nothing unread
	count, err = f.tracker.UnreadCount(ctx, room.ID, "alice")
	req.NoError(err)
	req.Equal(0, count)

	// When bob marks the room read
	req.NoError(f.tracker.MarkRoomRead(ctx, room.ID, "bob"))

	// Then nothing is unread
	count, err = f.tracker.UnreadCount(ctx, room.ID, "bob")
	req.NoError(err)
	req.Equal(0, count)
}

func TestReadTracker_MarkRoomRead_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	room, err := f.rooms.GetOrCreateRoom(ctx, "listing-1", "alice", "bob")
	req.NoError(err)
	for _, content := range []string{"one", "two", "three"} {
		_, err = f.messages.AppendMessage(ctx, room.ID, "alice", content, "")
		req.NoError(err)
	}

	req.NoError(f.tracker.MarkRoomRead(ctx, room.ID, "bob"))
	once, err := f.tracker.UnreadCount(ctx, room.ID, "bob")
	req.NoError(err)

	req.NoError(f.tracker.MarkRoomRead(ctx, room.ID, "bob"))
	twice, err := f.tracker.UnreadCount(ctx, room.ID, "bob")
	req.NoError(err)

	req.Equal(once, twice)
	req.Equal(0, twice)

	// Marking a room without messages is fine too
	empty, err := f.rooms.GetOrCreateRoom(ctx, "listing-2", "alice", "bob")
	req.NoError(err)
	req.NoError(f.tracker.MarkRoomRead(ctx, empty.ID, "bob"))
	req.NoError(f.tracker.MarkRoomRead(ctx, empty.ID, "bob"))
}

func TestReadTracker_Only_Counts_Messages_After_Cursor(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	room, err := f.rooms.GetOrCreateRoom(ctx, "listing-1", "alice", "bob")
	req.NoError(err)

	_, err = f.messages.AppendMessage(ctx, room.ID, "alice", "one", "")
	req.NoError(err)
	req.NoError(f.tracker.MarkRoomRead(ctx, room.ID, "bob"))

	// Given two new messages from alice and one reply from bob
	_, err = f.messages.AppendMessage(ctx, room.ID, "alice", "two", "")
	req.NoError(err)
	_, err = f.messages.AppendMessage(ctx, room.ID, "bob", "yes?", "")
	req.NoError(err)
	_, err = f.messages.AppendMessage(ctx, room.ID, "alice", "three", "")
	req.NoError(err)

	// Then only alice's messages after the cursor are unread for bob
	count, err := f.tracker.UnreadCount(ctx, room.ID, "bob")
	req.NoError(err)
	req.Equal(2, count)

	// And alice never read bob's reply
	count, err = f.tracker.UnreadCount(ctx, room.ID, "alice")
	req.NoError(err)
	req.Equal(1, count)
}

func TestReadTracker_UnreadCountsForUser(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	withBob, err := f.rooms.GetOrCreateRoom(ctx, "listing-1", "alice", "bob")
	req.NoError(err)
	withCarol, err := f.rooms.GetOrCreateRoom(ctx, "listing-2", "alice", "carol")
	req.NoError(err)
	quiet, err := f.rooms.GetOrCreateRoom(ctx, "listing-3", "alice", "dave")
	req.NoError(err)

	for _, content := range []string{"one", "two"} {
		_, err = f.messages.AppendMessage(ctx, withBob.ID, "bob", content, "")
		req.NoError(err)
	}
	_, err = f.messages.AppendMessage(ctx, withCarol.ID, "carol", "hello", "")
	req.NoError(err)
	_, err = f.messages.AppendMessage(ctx, quiet.ID, "alice", "anyone?", "")
	req.NoError(err)

	// When alice asks for her unread counts
	counts, err := f.tracker.UnreadCountsForUser(ctx, "alice")
	req.NoError(err)

	// Then only rooms with unread messages are reported
	req.Equal(map[chat.RoomID]int{withBob.ID: 2, withCarol.ID: 1}, counts)

	// And a user without room has none
	counts, err = f.tracker.UnreadCountsForUser(ctx, "nobody")
	req.NoError(err)
	req.Empty(counts)
}

func TestReadTracker_Rejects_Outsiders(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	room, err := f.rooms.GetOrCreateRoom(ctx, "listing-1", "alice", "bob")
	req.NoError(err)

	req.ErrorIs(f.tracker.MarkRoomRead(ctx, room.ID, "mallory"), chaterrors.ErrNotParticipant)
	_, err = f.tracker.UnreadCount(ctx, room.ID, "mallory")
	req.ErrorIs(err, chaterrors.ErrNotParticipant)
	req.ErrorIs(f.tracker.MarkRoomRead(ctx, "unknown", "bob"), chaterrors.ErrRoomNotFound)
}
