package server

import (
	"sort"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// ClientInfo describes one connected WebSocket client.
type ClientInfo struct {
	Remote      string    `json:"remote"`
	ConnectedAt time.Time `json:"connected_at"`
}

// ClientRegistry manages connected WebSocket clients thread-safely
type ClientRegistry struct {
	clients map[*websocket.Conn]ClientInfo
	mu      sync.RWMutex
}

// NewClientRegistry creates a new client registry
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{
		clients: make(map[*websocket.Conn]ClientInfo),
	}
}

// Add registers a client connection
func (r *ClientRegistry) Add(conn *websocket.Conn, remote string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[conn] = ClientInfo{Remote: remote, ConnectedAt: time.Now()}
}

// Remove unregisters a client connection
func (r *ClientRegistry) Remove(conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, conn)
}

// Count returns the number of connected clients
func (r *ClientRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Snapshot lists connected clients, oldest first.
func (r *ClientRegistry) Snapshot() []ClientInfo {
	r.mu.RLock()
	out := make([]ClientInfo, 0, len(r.clients))
	for _, info := range r.clients {
		out = append(out, info)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectedAt.Before(out[j].ConnectedAt) })
	return out
}

// ForEach executes fn for each connected client. fn runs on a copy of the
// connection set, so it may call back into the registry.
func (r *ClientRegistry) ForEach(fn func(*websocket.Conn)) {
	r.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(r.clients))
	for conn := range r.clients {
		conns = append(conns, conn)
	}
	r.mu.RUnlock()

	for _, conn := range conns {
		fn(conn)
	}
}
