package storage

import (
	"fmt"
	"listing-chat/domain/chat"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Every id segment is query-escaped so that ':' can be used as a separator
// and a prefix scan on one id never matches another id sharing its prefix.
//
//	room:{room}                       room document
//	room-key:{listing}:{a}:{b}        unique index on (listing, sorted participants)
//	member:{user}:{room}              index on participants
//	msg:{room}:{ts}:{message}         ordered message log
//	msg-id:{room}:{message}           message id to timestamp
//	cursor:{room}:{user}              read cursor
const (
	roomPrefix      = "room:"
	roomDedupPrefix = "room-key:"
	memberPrefix    = "member:"
	messagePrefix   = "msg:"
	messageIDPrefix = "msg-id:"
	cursorPrefix    = "cursor:"

	// maxTimestamp sorts after every 19-digit padded UnixNano timestamp.
	maxTimestamp = "9999999999999999999"
)

func esc(s string) string {
	return url.QueryEscape(s)
}

func roomKey(roomID chat.RoomID) []byte {
	return []byte(roomPrefix + esc(string(roomID)))
}

func roomDedupKey(listingID string, pair [2]string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%s", roomDedupPrefix, esc(listingID), esc(pair[0]), esc(pair[1])))
}

func memberKeyPrefix(userID string) []byte {
	return []byte(memberPrefix + esc(userID) + ":")
}

func memberKey(userID string, roomID chat.RoomID) []byte {
	return append(memberKeyPrefix(userID), esc(string(roomID))...)
}

// roomIDFromMemberKey extracts the room id from a member index key.
func roomIDFromMemberKey(key []byte, userID string) (chat.RoomID, error) {
	raw := strings.TrimPrefix(string(key), string(memberKeyPrefix(userID)))
	id, err := url.QueryUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("invalid member key %q: %w", key, err)
	}
	return chat.RoomID(id), nil
}

func messageKeyPrefix(roomID chat.RoomID) []byte {
	return []byte(messagePrefix + esc(string(roomID)) + ":")
}

// messageKey is formatted as "msg:{room}:{timestamp_padded}:{uuid}".
// The 19-digit zero padding keeps lexicographical order equal to chronological order.
func messageKey(roomID chat.RoomID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", messageKeyPrefix(roomID), encodeTimestamp(at), id))
}

func messageIDKey(roomID chat.RoomID, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", messageIDPrefix, esc(string(roomID)), id))
}

func cursorKey(roomID chat.RoomID, userID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", cursorPrefix, esc(string(roomID)), esc(userID)))
}

func encodeTimestamp(at time.Time) string {
	return fmt.Sprintf("%019d", at.UnixNano())
}

func decodeTimestamp(raw []byte) (time.Time, error) {
	nanos, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	return time.Unix(0, nanos).UTC(), nil
}
