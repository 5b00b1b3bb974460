// Package chat contains core concepts of the listing chat.
// This file defines Room entities and the participant pair invariant.
// No runtime, network, or storage logic should be added here.
package chat

import (
	"slices"
	"time"
)

type RoomID string

// Room is a two-party conversation scoped to one listing.
// Participants are always kept sorted so that the pair is unordered for lookups.
type Room struct {
	ID            RoomID
	ListingID     string
	Participants  [2]string
	CreatedAt     time.Time
	LastMessageAt time.Time
}

func NewRoom(id RoomID, listingID, userA, userB string, at time.Time) Room {
	return Room{
		ID:            id,
		ListingID:     listingID,
		Participants:  SortedPair(userA, userB),
		CreatedAt:     at,
		LastMessageAt: at,
	}
}

// SortedPair orders two user ids lexicographically.
func SortedPair(userA, userB string) [2]string {
	if userB < userA {
		return [2]string{userB, userA}
	}
	return [2]string{userA, userB}
}

func (r Room) HasParticipant(userID string) bool {
	return slices.Contains(r.Participants[:], userID)
}

// Peer returns the other participant of the room.
func (r Room) Peer(userID string) (string, bool) {
	switch userID {
	case r.Participants[0]:
		return r.Participants[1], true
	case r.Participants[1]:
		return r.Participants[0], true
	default:
		return "", false
	}
}
