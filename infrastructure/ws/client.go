package ws

import (
	"context"
	"listing-chat/domain/chat"
	chaterrors "listing-chat/errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is the live connection of one user on one room.
// Pushes are queued on send and written by a single write pump,
// so events reach the peer in the order they were pushed.
type Client struct {
	id        string
	userID    string
	roomID    chat.RoomID
	log       *slog.Logger
	conn      *websocket.Conn
	send      chan []byte
	writeWait time.Duration
	pingEvery time.Duration

	closeOnce   sync.Once
	done        chan struct{}
	stopped     chan struct{}
	closeCode   int
	closeReason string
}

func NewClient(log *slog.Logger, userID string, roomID chat.RoomID, cfg Config) *Client {
	id := uuid.NewString()
	return &Client{
		id:        id,
		userID:    userID,
		roomID:    roomID,
		log:       log.With("connection_id", id, "user_id", userID, "room_id", roomID),
		send:      make(chan []byte, cfg.SendBufferSize),
		writeWait: cfg.WriteWait,
		pingEvery: cfg.PongWait * 9 / 10,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// Push queues the event for the write pump.
// It waits for room in the send buffer until ctx expires.
func (c *Client) Push(ctx context.Context, e chat.DomainEvent) error {
	data, err := EncodeEvent(e)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return chaterrors.ErrConnectionClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return chaterrors.ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close asks the write pump to say goodbye to the peer and release the socket.
func (c *Client) Close() error {
	c.closeWith(websocket.CloseGoingAway, "connection evicted")
	return nil
}

// closeWith keeps the first close code, later calls are no-ops.
func (c *Client) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = closeReason(reason)
		close(c.done)
	})
}

// start binds the upgraded socket. Events pushed before are flushed first.
func (c *Client) start(conn *websocket.Conn) {
	c.conn = conn
	go c.writePump()
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		close(c.stopped)
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug("Write failed, closing connection", "error", err)
				c.closeWith(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("Ping failed, closing connection", "error", err)
				c.closeWith(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		case <-c.done:
			if c.closeCode != websocket.CloseAbnormalClosure {
				msg := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
				_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait))
			}
			return
		}
	}
}
