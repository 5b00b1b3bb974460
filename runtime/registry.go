package runtime

import (
	"listing-chat/contract"
	"sync"
)

// Registry tracks the live connections of every connected user.
// One user may hold several connections (devices, tabs).
type Registry struct {
	mu          sync.RWMutex
	connections map[string]map[string]contract.Connection // map user -> connection id -> connection
}

func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]map[string]contract.Connection),
	}
}

// Register adds a connection to the user's set, creating the set on first connection.
func (r *Registry) Register(userID string, conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[userID]; !ok {
		r.connections[userID] = make(map[string]contract.Connection)
	}
	r.connections[userID][conn.ID()] = conn
}

// Deregister removes a connection from the user's set.
// Removing an unknown connection is a no-op, so concurrent cleanup paths can both call it.
// No empty set is left behind.
func (r *Registry) Deregister(userID string, conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.connections[userID]
	if !ok {
		return
	}
	delete(conns, conn.ID())
	if len(conns) == 0 {
		delete(r.connections, userID)
	}
}

// LiveConnectionsOf returns a snapshot of the user's connections, empty if none.
// The snapshot can be used without holding the lock.
func (r *Registry) LiveConnectionsOf(userID string) []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.connections[userID]
	res := make([]contract.Connection, 0, len(conns))
	for _, conn := range conns {
		res = append(res, conn)
	}
	return res
}

// Stats returns the number of connected users and live connections.
func (r *Registry) Stats() (users int, connections int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, conns := range r.connections {
		connections += len(conns)
	}
	return len(r.connections), connections
}
