package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

const textMessage = websocket.TextMessage

// group is one room's set of subscribed connections.
type group struct {
	mu    sync.RWMutex
	conns map[string]*clientConn // connID -> conn
}

func newGroup() *group { return &group{conns: map[string]*clientConn{}} }

func (g *group) add(connID string, c *clientConn) {
	g.mu.Lock()
	g.conns[connID] = c
	g.mu.Unlock()
}

// remove drops the connection from the group without closing it; leaving
// a room is not a disconnect.
func (g *group) remove(connID string) {
	g.mu.Lock()
	delete(g.conns, connID)
	g.mu.Unlock()
}

func (g *group) broadcast(msg []byte) {
	// Take a quick snapshot of the current connections
	g.mu.RLock()
	type member struct {
		id string
		c  *clientConn
	}
	members := make([]member, 0, len(g.conns))
	for id, c := range g.conns {
		members = append(members, member{id, c})
	}
	g.mu.RUnlock()

	// Do the I/O outside the lock. A failed write means a broken
	// connection: drop it here and close it so its reader loop runs the
	// full disconnect cleanup.
	for _, m := range members {
		if err := m.c.write(textMessage, msg); err != nil {
			g.remove(m.id)
			_ = m.c.rawConn.Close()
		}
	}
}
