package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRoom_SortsParticipants(t *testing.T) {
	req := require.New(t)
	at := time.Now().UTC()

	// When the same pair is given in both orders
	r1 := NewRoom("r1", "listing-1", "bob", "alice", at)
	r2 := NewRoom("r2", "listing-1", "alice", "bob", at)

	// Then the stored pair is identical
	req.Equal([2]string{"alice", "bob"}, r1.Participants)
	req.Equal(r1.Participants, r2.Participants)
	req.Equal(at, r1.LastMessageAt)
}

func TestRoom_Peer(t *testing.T) {
	req := require.New(t)
	room := NewRoom("r1", "listing-1", "alice", "bob", time.Now())

	peer, ok := room.Peer("alice")
	req.True(ok)
	req.Equal("bob", peer)

	peer, ok = room.Peer("bob")
	req.True(ok)
	req.Equal("alice", peer)

	_, ok = room.Peer("mallory")
	req.False(ok)
	req.False(room.HasParticipant("mallory"))
	req.True(room.HasParticipant("bob"))
}

func TestMessage_IsReadBy(t *testing.T) {
	req := require.New(t)
	at := time.Now().UTC()
	msg := Message{SenderID: "alice", Timestamp: at}

	// The sender has always read its own message
	req.True(msg.IsReadBy("alice", nil))

	// A user without cursor has not
	req.False(msg.IsReadBy("bob", nil))

	// A cursor before the message does not cover it
	before := at.Add(-time.Second)
	req.False(msg.IsReadBy("bob", &before))

	// A cursor at or after the message does
	req.True(msg.IsReadBy("bob", &at))
	after := at.Add(time.Second)
	req.True(msg.IsReadBy("bob", &after))
}
