// Package ws runs the websocket connections of the chat.
// A connection goes Connecting (registered, room read) -> Active (receive loop) -> Closed,
// and is deregistered exactly once whatever the exit path.
package ws

import (
	"context"
	"errors"
	"listing-chat/domain/chat"
	chaterrors "listing-chat/errors"
	"listing-chat/services"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type Config struct {
	SendBufferSize   int
	DeliveryTimeout  time.Duration
	WriteWait        time.Duration
	PongWait         time.Duration
	IdleTimeout      time.Duration
	MaxMessageSize   int64
	MaxContentLength int
}

type Handler struct {
	log      *slog.Logger
	service  services.IChatService
	upgrader websocket.Upgrader
	cfg      Config
}

func NewHandler(log *slog.Logger, service services.IChatService, cfg Config) *Handler {
	return &Handler{
		log:     log,
		service: service,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Authentication is done with the token, not with cookies.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve runs the connection of an authenticated user until it is closed.
// An error is returned only when the connection could not be established,
// in which case nothing has been written to w yet.
func (h *Handler) Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, roomID chat.RoomID, userID string) error {
	client := NewClient(h.log, userID, roomID, h.cfg)

	// Connecting
	if err := h.service.Connect(ctx, roomID, userID, client); err != nil {
		return err
	}
	defer h.service.Disconnect(userID, client)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already answered the request.
		client.log.Debug("Websocket upgrade failed", "error", err)
		client.closeWith(websocket.CloseAbnormalClosure, "upgrade failed")
		return nil
	}
	client.start(conn)
	client.log.Info("Connection opened")

	// Active
	h.receive(ctx, client)

	// Closed
	<-client.stopped
	client.log.Info("Connection closed", "code", client.closeCode, "reason", client.closeReason)
	return nil
}

func (h *Handler) receive(ctx context.Context, client *Client) {
	conn := client.conn
	conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	idle := time.AfterFunc(h.cfg.IdleTimeout, func() {
		client.closeWith(websocket.CloseNormalClosure, "idle timeout")
	})
	defer idle.Stop()

	go func() {
		select {
		case <-ctx.Done():
			client.closeWith(websocket.CloseGoingAway, "server shutting down")
		case <-client.done:
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			h.logReadError(client, err)
			client.closeWith(websocket.CloseAbnormalClosure, "read failed")
			return
		}
		idle.Reset(h.cfg.IdleTimeout)
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))

		in, err := DecodeInbound(messageType, data, h.cfg.MaxContentLength)
		if err != nil {
			var perr protocolError
			errors.As(err, &perr)
			client.log.Info("Protocol error, closing connection", "error", err)
			client.closeWith(perr.code, perr.reason)
			return
		}

		if !h.send(ctx, client, in) {
			return
		}
	}
}

// send returns false when the connection must be closed.
func (h *Handler) send(ctx context.Context, client *Client, in InboundMessage) bool {
	_, err := h.service.SendMessage(ctx, chat.SendMessageCommand{
		RoomID:   client.roomID,
		SenderID: client.userID,
		Content:  in.Content,
		Type:     in.Type,
	})
	if err == nil {
		return true
	}
	if ctx.Err() != nil {
		client.log.Debug("Send interrupted by shutdown", "error", err)
		client.closeWith(websocket.CloseGoingAway, "server shutting down")
		return false
	}
	if !chaterrors.IsClientVisible(err) {
		client.log.Error("Unable to send message", "error", err)
		client.closeWith(websocket.CloseInternalServerErr, "internal error")
		return false
	}

	client.log.Warn("Message rejected", "error", err)
	pushCtx, cancel := context.WithTimeout(ctx, h.cfg.DeliveryTimeout)
	defer cancel()
	rejected := chat.SendRejected{Room: client.roomID, Code: chaterrors.Code(err), Detail: err.Error()}
	if err := client.Push(pushCtx, rejected); err != nil {
		client.log.Debug("Unable to report rejection", "error", err)
	}
	return true
}

func (h *Handler) logReadError(client *Client, err error) {
	select {
	case <-client.done:
		// Closed on our side, the read error is the consequence.
		return
	default:
	}
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
		client.log.Warn("Connection lost", "error", err)
		return
	}
	client.log.Debug("Peer closed the connection", "error", err)
}
