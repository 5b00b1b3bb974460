package ws

import (
	"bytes"
	"encoding/json"
	"fmt"
	"listing-chat/domain/chat"
	chaterrors "listing-chat/errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
)

const (
	eventMessage = "message"
	eventError   = "error"
)

var validate = validator.New()

// InboundMessage is the only payload a client may send on a connection.
type InboundMessage struct {
	Content string `json:"content" validate:"required"`
	Type    string `json:"type,omitempty" validate:"omitempty,max=32,printascii"`
}

type MessageDTO struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	ReadBy    []string  `json:"read_by"`
}

func NewMessageDTO(m chat.Message) MessageDTO {
	readBy := m.ReadBy
	if readBy == nil {
		readBy = []string{}
	}
	return MessageDTO{
		ID:        m.ID.String(),
		SenderID:  m.SenderID,
		Content:   m.Content,
		Type:      m.Type,
		Timestamp: m.Timestamp,
		ReadBy:    readBy,
	}
}

type OutboundEvent struct {
	Event    string      `json:"event"`
	RoomID   string      `json:"room_id"`
	SenderID string      `json:"sender_id,omitempty"`
	Message  *MessageDTO `json:"message,omitempty"`
	Error    string      `json:"error,omitempty"`
	Detail   string      `json:"detail,omitempty"`
}

// protocolError carries the close code sent to the peer.
type protocolError struct {
	code   int
	reason string
}

func (e protocolError) Error() string {
	return fmt.Sprintf("%s: %s", chaterrors.ErrProtocol, e.reason)
}

func (e protocolError) Unwrap() error { return chaterrors.ErrProtocol }

// DecodeInbound parses one client frame.
// Undecodable frames are closed with 1003, decodable but invalid ones with 1008.
func DecodeInbound(messageType int, data []byte, maxContentLength int) (InboundMessage, error) {
	if messageType != websocket.TextMessage {
		return InboundMessage{}, protocolError{code: websocket.CloseUnsupportedData, reason: "text frames only"}
	}

	var in InboundMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		if strings.HasPrefix(err.Error(), "json: unknown field") {
			return InboundMessage{}, protocolError{code: websocket.ClosePolicyViolation, reason: err.Error()}
		}
		return InboundMessage{}, protocolError{code: websocket.CloseUnsupportedData, reason: "invalid json"}
	}
	if dec.More() {
		return InboundMessage{}, protocolError{code: websocket.CloseUnsupportedData, reason: "trailing data"}
	}

	in.Content = strings.TrimSpace(in.Content)
	if err := validate.Struct(in); err != nil {
		return InboundMessage{}, protocolError{code: websocket.ClosePolicyViolation, reason: err.Error()}
	}
	if n := utf8.RuneCountInString(in.Content); n > maxContentLength {
		return InboundMessage{}, protocolError{
			code:   websocket.ClosePolicyViolation,
			reason: fmt.Sprintf("content has %d characters, at most %d allowed", n, maxContentLength),
		}
	}
	return in, nil
}

func EncodeEvent(e chat.DomainEvent) ([]byte, error) {
	switch evt := e.(type) {
	case chat.MessagePosted:
		dto := NewMessageDTO(evt.Message)
		return json.Marshal(OutboundEvent{
			Event:    eventMessage,
			RoomID:   string(evt.Room),
			SenderID: evt.SenderID,
			Message:  &dto,
		})
	case chat.SendRejected:
		return json.Marshal(OutboundEvent{
			Event:  eventError,
			RoomID: string(evt.Room),
			Error:  evt.Code,
			Detail: evt.Detail,
		})
	default:
		return nil, fmt.Errorf("unsupported event %T", e)
	}
}

// closeReason fits a reason in a close frame, limited to 123 bytes.
func closeReason(reason string) string {
	const maxReason = 123
	if len(reason) <= maxReason {
		return reason
	}
	cut := maxReason
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}
