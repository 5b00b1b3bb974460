package runtime

import (
	"context"
	"listing-chat/contract"
	"listing-chat/domain/chat"
	"log/slog"
	"sync"
	"time"
)

// Broadcaster delivers a persisted message to the live connections
// of every room participant other than the sender.
// Delivery is best effort: offline participants catch up with the history.
type Broadcaster struct {
	log                 *slog.Logger
	directory           contract.IRoomDirectory
	registry            contract.IRegistry
	deliveryTimeout     time.Duration
	maxDeliveryFailures int

	mu       sync.Mutex
	failures map[string]int // connection id -> consecutive failed pushes
}

func NewBroadcaster(
	log *slog.Logger,
	directory contract.IRoomDirectory,
	registry contract.IRegistry,
	deliveryTimeout time.Duration,
	maxDeliveryFailures int,
) *Broadcaster {
	return &Broadcaster{
		log:                 log,
		directory:           directory,
		registry:            registry,
		deliveryTimeout:     deliveryTimeout,
		maxDeliveryFailures: maxDeliveryFailures,
		failures:            make(map[string]int),
	}
}

type delivery struct {
	userID string
	conn   contract.Connection
}

// Broadcast never returns an error, the message is already stored.
// It returns once every push has completed or timed out.
func (b *Broadcaster) Broadcast(ctx context.Context, roomID chat.RoomID, message chat.Message, senderID string) {
	room, err := b.directory.GetRoom(ctx, roomID)
	if err != nil {
		b.log.Warn("Unable to resolve room participants, nothing delivered",
			"room_id", roomID, "message_id", message.ID, "error", err)
		return
	}

	recipient, ok := room.Peer(senderID)
	if !ok {
		b.log.Warn("Sender is not a participant, nothing delivered",
			"room_id", roomID, "message_id", message.ID, "user_id", senderID)
		return
	}
	var deliveries []delivery
	for _, conn := range b.registry.LiveConnectionsOf(recipient) {
		deliveries = append(deliveries, delivery{userID: recipient, conn: conn})
	}
	if len(deliveries) == 0 {
		b.log.Debug("No live connection for the recipient", "room_id", roomID, "message_id", message.ID)
		return
	}

	evt := chat.MessagePosted{Room: roomID, SenderID: senderID, Message: message}
	var wg sync.WaitGroup
	for _, d := range deliveries {
		wg.Add(1)
		go func(d delivery) {
			defer wg.Done()
			b.push(ctx, d, evt)
		}(d)
	}
	wg.Wait()
}

func (b *Broadcaster) push(ctx context.Context, d delivery, evt chat.MessagePosted) {
	pushCtx, cancel := context.WithTimeout(ctx, b.deliveryTimeout)
	defer cancel()

	if err := d.conn.Push(pushCtx, evt); err != nil {
		b.log.Warn("Push failed",
			"room_id", evt.Room, "user_id", d.userID, "connection_id", d.conn.ID(), "error", err)
		b.recordFailure(d)
		return
	}
	b.resetFailures(d.conn)
}

func (b *Broadcaster) recordFailure(d delivery) {
	b.mu.Lock()
	b.failures[d.conn.ID()]++
	evict := b.maxDeliveryFailures > 0 && b.failures[d.conn.ID()] >= b.maxDeliveryFailures
	if evict {
		delete(b.failures, d.conn.ID())
	}
	b.mu.Unlock()

	if !evict {
		return
	}
	b.log.Info("Evicting unresponsive connection", "user_id", d.userID, "connection_id", d.conn.ID())
	b.registry.Deregister(d.userID, d.conn)
	if err := d.conn.Close(); err != nil {
		b.log.Debug("Close of evicted connection failed", "connection_id", d.conn.ID(), "error", err)
	}
}

func (b *Broadcaster) resetFailures(conn contract.Connection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, conn.ID())
}

// Forget drops the failure count of a connection that left.
func (b *Broadcaster) Forget(conn contract.Connection) {
	b.resetFailures(conn)
}
