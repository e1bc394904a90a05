package ws

import (
	"sync"
)

// Hub tracks every live connection by ID and the broadcast group of each
// room. Group membership is driven by the coordinator through Delivery;
// the hub itself knows nothing about presence or credentials.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*clientConn
	rooms sync.Map // room name -> *group
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]*clientConn)}
}

// Register makes a freshly accepted connection addressable by ID.
func (h *Hub) Register(connID string, c *clientConn) {
	h.mu.Lock()
	h.conns[connID] = c
	h.mu.Unlock()
}

// Unregister forgets the connection and drops it from any group it is
// still part of.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	delete(h.conns, connID)
	h.mu.Unlock()

	h.rooms.Range(func(_, v any) bool {
		v.(*group).remove(connID)
		return true
	})
}

func (h *Hub) Join(room, connID string) {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return // connection already gone
	}
	g, _ := h.rooms.LoadOrStore(room, newGroup())
	g.(*group).add(connID, c)
}

func (h *Hub) Leave(room, connID string) {
	if v, ok := h.rooms.Load(room); ok {
		v.(*group).remove(connID)
	}
}

// Broadcast is called by the Redis subscriber.
func (h *Hub) Broadcast(room string, msg []byte) {
	if v, ok := h.rooms.Load(room); ok {
		v.(*group).broadcast(msg)
	}
}

// BroadcastAll writes to every registered connection, in or out of any
// room. Used for the global room-list-changed event.
func (h *Hub) BroadcastAll(msg []byte) {
	h.mu.RLock()
	conns := make([]*clientConn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(textMessage, msg); err != nil {
			_ = c.rawConn.Close()
		}
	}
}
