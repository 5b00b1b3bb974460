package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mama165/sdk-go/database"
)

// Describe returns the kind of a raw badger entry and a readable summary of its value.
func Describe(key string, val []byte) (kind string, detail string) {
	switch {
	case strings.HasPrefix(key, roomPrefix):
		var r diskRoom
		if err := json.Unmarshal(val, &r); err != nil {
			return "ROOM", "Error: unmarshal failed"
		}
		return "ROOM", fmt.Sprintf("listing=%s participants=%s,%s last=%s",
			r.ListingID, r.Participants[0], r.Participants[1], formatNanos(r.LastMessageAt))
	case strings.HasPrefix(key, roomDedupPrefix):
		return "ROOM_INDEX", string(val)
	case strings.HasPrefix(key, memberPrefix):
		return "MEMBER", "-"
	case strings.HasPrefix(key, messagePrefix):
		var m diskMessage
		if err := json.Unmarshal(val, &m); err != nil {
			return "MESSAGE", "Error: unmarshal failed"
		}
		return "MESSAGE", fmt.Sprintf("%s [%s]: %s", m.SenderID, m.Type, m.Content)
	case strings.HasPrefix(key, messageIDPrefix), strings.HasPrefix(key, cursorPrefix):
		kind := "MESSAGE_INDEX"
		if strings.HasPrefix(key, cursorPrefix) {
			kind = "CURSOR"
		}
		at, err := decodeTimestamp(val)
		if err != nil {
			return kind, "Error: " + err.Error()
		}
		return kind, at.Format(time.RFC3339Nano)
	default:
		return "RAW", fmt.Sprintf("Size: %d bytes", len(val))
	}
}

// ChatMapper renders chat entries in the badger debug inspector.
func ChatMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	row.Type, row.Detail = Describe(key, val)
	return row
}

func formatNanos(nanos int64) string {
	return time.Unix(0, nanos).UTC().Format(time.RFC3339)
}
