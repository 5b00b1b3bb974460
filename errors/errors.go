package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic         = fmt.Errorf("worker panic")
	ErrStorageUnavailable  = fmt.Errorf("storage unavailable")
	ErrNotParticipant      = fmt.Errorf("user is not a participant of the room")
	ErrRoomNotFound        = fmt.Errorf("room not found")
	ErrMessageNotFound     = fmt.Errorf("message not found")
	ErrProtocol            = fmt.Errorf("malformed payload")
	ErrInvalidParticipants = fmt.Errorf("a room needs two distinct participants")
	ErrConnectionClosed    = fmt.Errorf("connection closed")
	ErrUnauthenticated     = fmt.Errorf("missing or invalid token")
)

// Code returns the stable identifier sent to clients for a known error.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrNotParticipant):
		return "not_participant"
	case errors.Is(err, ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, ErrMessageNotFound):
		return "message_not_found"
	case errors.Is(err, ErrProtocol):
		return "protocol_error"
	case errors.Is(err, ErrInvalidParticipants):
		return "invalid_participants"
	case errors.Is(err, ErrConnectionClosed):
		return "connection_closed"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "internal"
	}
}

// MapToHTTPStatus converts domain errors to the status returned by the REST surface.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrMessageNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrProtocol), errors.Is(err, ErrInvalidParticipants):
		return http.StatusBadRequest
	case errors.Is(err, ErrConnectionClosed):
		return http.StatusGone
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// IsClientVisible reports whether a send failure is reported back on the connection
// instead of terminating it.
func IsClientVisible(err error) bool {
	return errors.Is(err, ErrNotParticipant) ||
		errors.Is(err, ErrRoomNotFound) ||
		errors.Is(err, ErrStorageUnavailable)
}
