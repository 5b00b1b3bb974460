package runtime

import (
	"context"
	"listing-chat/contract"
	"listing-chat/domain/chat"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeConnection struct {
	id string
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{id: uuid.NewString()}
}

func (f *fakeConnection) ID() string { return f.id }

func (f *fakeConnection) Push(context.Context, chat.DomainEvent) error { return nil }

func (f *fakeConnection) Close() error { return nil }

func TestRegistry_Register_One_User_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	conn := newFakeConnection()

	// Given no user is connected
	req.Empty(registry.LiveConnectionsOf(userID))

	// When a connection registers
	registry.Register(userID, conn)

	// Then
	req.Equal([]contract.Connection{conn}, registry.LiveConnectionsOf(userID))
	users, conns := registry.Stats()
	req.Equal(1, users)
	req.Equal(1, conns)
}

func TestRegistry_Register_One_User_Multiple_Devices(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	device1 := newFakeConnection()
	device2 := newFakeConnection()

	// When two devices of the same user register
	registry.Register(userID, device1)
	registry.Register(userID, device2)

	// Then both are live
	live := registry.LiveConnectionsOf(userID)
	req.Len(live, 2)
	req.Contains(live, device1)
	req.Contains(live, device2)

	// When one device leaves
	registry.Deregister(userID, device1)

	// Then the other one is still live
	req.Equal([]contract.Connection{device2}, registry.LiveConnectionsOf(userID))
}

func TestRegistry_Deregister_Removes_Empty_Entry(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	conn := newFakeConnection()

	registry.Register(userID, conn)
	registry.Deregister(userID, conn)

	// Then no user is left
	req.Empty(registry.LiveConnectionsOf(userID))
	users, conns := registry.Stats()
	req.Zero(users)
	req.Zero(conns)
	req.Empty(registry.connections)
}

func TestRegistry_Deregister_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	conn := newFakeConnection()
	other := newFakeConnection()
	registry.Register(userID, conn)

	// When cleanup runs twice, or for a connection never registered
	registry.Deregister(userID, conn)
	registry.Deregister(userID, conn)
	registry.Deregister(userID, other)
	registry.Deregister(uuid.NewString(), other)

	// Then nothing breaks
	req.Empty(registry.LiveConnectionsOf(userID))
}

func TestRegistry_Concurrent_Register_Deregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	users := []string{"alice", "bob", "carol"}
	perUser := 50

	var wg sync.WaitGroup
	for _, userID := range users {
		for i := 0; i < perUser; i++ {
			wg.Add(1)
			go func(userID string, i int) {
				defer wg.Done()
				conn := newFakeConnection()
				registry.Register(userID, conn)
				_ = registry.LiveConnectionsOf(userID)
				if i%2 == 0 {
					registry.Deregister(userID, conn)
				}
			}(userID, i)
		}
	}
	wg.Wait()

	// Then half of the connections of every user are still live
	for _, userID := range users {
		req.Len(registry.LiveConnectionsOf(userID), perUser/2)
	}
	_, conns := registry.Stats()
	req.Equal(len(users)*perUser/2, conns)
}
