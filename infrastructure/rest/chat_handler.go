package rest

import (
	"fmt"
	"listing-chat/domain/chat"
	chaterrors "listing-chat/errors"
	"listing-chat/infrastructure/ws"
	"listing-chat/services"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type ChatHandler struct {
	log     *slog.Logger
	service services.IChatService
	ws      *ws.Handler
}

func NewChatHandler(log *slog.Logger, service services.IChatService, wsHandler *ws.Handler) *ChatHandler {
	return &ChatHandler{log: log, service: service, ws: wsHandler}
}

type createRoomRequest struct {
	ListingID string `json:"listing_id" binding:"required"`
	OwnerID   string `json:"owner_id" binding:"required"`
}

type roomResponse struct {
	ID            string    `json:"id"`
	ListingID     string    `json:"listing_id"`
	Participants  []string  `json:"participants"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

func toRoomResponse(room chat.Room) roomResponse {
	return roomResponse{
		ID:            string(room.ID),
		ListingID:     room.ListingID,
		Participants:  room.Participants[:],
		CreatedAt:     room.CreatedAt,
		LastMessageAt: room.LastMessageAt,
	}
}

type historyQuery struct {
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	BeforeID string `form:"before_id" binding:"omitempty,uuid"`
}

// CreateRoom opens, or reopens, the chat of the caller with the owner of a listing.
func (h *ChatHandler) CreateRoom(c *gin.Context) {
	var body createRoomRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, fmt.Errorf("%w: %w", chaterrors.ErrProtocol, err))
		return
	}
	room, err := h.service.CreateRoom(c.Request.Context(), chat.CreateRoomCommand{
		ListingID: body.ListingID,
		SeekerID:  mustUserID(c),
		OwnerID:   body.OwnerID,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": room.ID})
}

func (h *ChatHandler) ListRooms(c *gin.Context) {
	rooms, err := h.service.ListRooms(c.Request.Context(), mustUserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(rooms, func(room chat.Room, _ int) roomResponse {
		return toRoomResponse(room)
	}))
}

func (h *ChatHandler) History(c *gin.Context) {
	var query historyQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortWithError(c, fmt.Errorf("%w: %w", chaterrors.ErrProtocol, err))
		return
	}
	cmd := chat.GetHistoryCommand{
		RoomID: chat.RoomID(c.Param("room_id")),
		UserID: mustUserID(c),
		Limit:  query.Limit,
	}
	if query.BeforeID != "" {
		cmd.BeforeID = lo.ToPtr(uuid.MustParse(query.BeforeID))
	}

	messages, err := h.service.History(c.Request.Context(), cmd)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(messages, func(m chat.Message, _ int) ws.MessageDTO {
		return ws.NewMessageDTO(m)
	}))
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	if err := h.service.MarkRead(c.Request.Context(), chat.RoomID(c.Param("room_id")), mustUserID(c)); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *ChatHandler) UnreadCounts(c *gin.Context) {
	counts, err := h.service.UnreadCounts(c.Request.Context(), mustUserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.MapKeys(counts, func(_ int, roomID chat.RoomID) string {
		return string(roomID)
	}))
}

// Connect upgrades to a websocket and blocks until the connection is closed.
func (h *ChatHandler) Connect(c *gin.Context) {
	err := h.ws.Serve(c.Request.Context(), c.Writer, c.Request, chat.RoomID(c.Param("room_id")), mustUserID(c))
	if err != nil {
		abortWithError(c, err)
	}
}
