package ws

import (
	"encoding/json"
	"listing-chat/domain/chat"
	chaterrors "listing-chat/errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
		want    InboundMessage
		code    int
	}{
		{name: "plain text", payload: `{"content":"hello"}`, want: InboundMessage{Content: "hello"}},
		{name: "typed", payload: `{"content":"offer","type":"proposal"}`, want: InboundMessage{Content: "offer", Type: "proposal"}},
		{name: "trimmed", payload: `{"content":"\n  hi \t"}`, want: InboundMessage{Content: "hi"}},
		{name: "exactly at limit", payload: `{"content":"` + strings.Repeat("ü", 10) + `"}`, want: InboundMessage{Content: strings.Repeat("ü", 10)}},
		{name: "unknown field", payload: `{"content":"hi","room_id":"other"}`, code: websocket.ClosePolicyViolation},
		{name: "blank", payload: `{"content":""}`, code: websocket.ClosePolicyViolation},
		{name: "over limit", payload: `{"content":"` + strings.Repeat("ü", 11) + `"}`, code: websocket.ClosePolicyViolation},
		{name: "wrong type", payload: `{"content":42}`, code: websocket.CloseUnsupportedData},
		{name: "two documents", payload: `{"content":"a"}{"content":"b"}`, code: websocket.CloseUnsupportedData},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			got, err := DecodeInbound(websocket.TextMessage, []byte(tc.payload), 10)
			if tc.code == 0 {
				req.NoError(err)
				req.Equal(tc.want, got)
				return
			}
			req.ErrorIs(err, chaterrors.ErrProtocol)
			var perr protocolError
			req.ErrorAs(err, &perr)
			req.Equal(tc.code, perr.code)
		})
	}
}

func TestEncodeEvent_Message(t *testing.T) {
	req := require.New(t)
	id := uuid.New()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	data, err := EncodeEvent(chat.MessagePosted{
		Room:     "R",
		SenderID: "alice",
		Message: chat.Message{
			ID: id, RoomID: "R", SenderID: "alice", Content: "hi",
			Type: chat.DefaultMessageType, Timestamp: at, ReadBy: []string{"alice"},
		},
	})
	req.NoError(err)

	req.JSONEq(`{
		"event": "message",
		"room_id": "R",
		"sender_id": "alice",
		"message": {
			"id": "`+id.String()+`",
			"sender_id": "alice",
			"content": "hi",
			"type": "text",
			"timestamp": "2024-05-01T10:00:00Z",
			"read_by": ["alice"]
		}
	}`, string(data))
}

func TestEncodeEvent_Rejection(t *testing.T) {
	req := require.New(t)

	data, err := EncodeEvent(chat.SendRejected{Room: "R", Code: "not_participant", Detail: "nope"})
	req.NoError(err)

	var evt map[string]any
	req.NoError(json.Unmarshal(data, &evt))
	req.Equal(map[string]any{"event": "error", "room_id": "R", "error": "not_participant", "detail": "nope"}, evt)
}

func TestCloseReason_Truncates_On_Rune_Boundary(t *testing.T) {
	req := require.New(t)
	reason := closeReason(strings.Repeat("é", 100))
	req.LessOrEqual(len(reason), 123)
	req.True(strings.HasPrefix(strings.Repeat("é", 100), reason))
	req.Equal("short", closeReason("short"))
}
