package storage

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func TestDescribe_Every_Key_Kind(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	room, err := f.rooms.GetOrCreateRoom(ctx, "L1", "alice", "bob")
	req.NoError(err)
	_, err = f.messages.AppendMessage(ctx, room.ID, "alice", "hello", "")
	req.NoError(err)
	req.NoError(f.tracker.MarkRoomRead(ctx, room.ID, "bob"))

	// When every stored entry is described
	kinds := map[string]string{}
	req.NoError(f.rooms.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			kind, detail := Describe(string(item.Key()), val)
			kinds[kind] = detail
		}
		return nil
	}))

	// Then each key family is recognized
	req.Contains(kinds["ROOM"], "listing=L1 participants=alice,bob")
	req.Equal(string(room.ID), kinds["ROOM_INDEX"])
	req.Contains(kinds, "MEMBER")
	req.Equal("alice [text]: hello", kinds["MESSAGE"])
	req.Contains(kinds, "MESSAGE_INDEX")
	req.Contains(kinds, "CURSOR")
	req.NotContains(kinds, "RAW")

	kind, detail := Describe("other", []byte("abc"))
	req.Equal("RAW", kind)
	req.Equal("Size: 3 bytes", detail)
}
