package ws

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	roomChannelPrefix = "chat:room:"
	roomChannelSuffix = ":events"

	// globalChannel carries broadcasts addressed to every connection,
	// such as room-list-changed.
	globalChannel = "chat:rooms:events"
)

func roomChannel(room string) string {
	return roomChannelPrefix + room + roomChannelSuffix
}

// subscriptionManager guarantees that we have **exactly one** Redis
// subscription per room channel, no matter how many websocket clients
// currently occupy the room.
type subscriptionManager struct {
	rdb  *redis.Client
	hub  *Hub
	mu   sync.Mutex
	subs map[string]*subEntry // room name ➜ subscription data
}

type subEntry struct {
	refCnt int
	cancel context.CancelFunc
}

func newSubscriptionManager(rdb *redis.Client, hub *Hub) *subscriptionManager {
	return &subscriptionManager{
		rdb:  rdb,
		hub:  hub,
		subs: make(map[string]*subEntry),
	}
}

// Start opens the process-lifetime subscription for global events. It
// must be called once at boot.
func (sm *subscriptionManager) Start(ctx context.Context) {
	ps := sm.rdb.Subscribe(ctx, globalChannel)
	go func() {
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ps.Channel():
				if !ok {
					return
				}
				sm.hub.BroadcastAll([]byte(m.Payload))
			}
		}
	}()
}

// Subscribe ensures that the process is subscribed to the room's channel;
// subsequent calls for the same room only increment the ref-counter.
func (sm *subscriptionManager) Subscribe(room string) {
	sm.mu.Lock()
	if e, ok := sm.subs[room]; ok {
		e.refCnt++
		sm.mu.Unlock()
		return
	}

	// First occupant → create Redis SUB and fan-out loop.
	ctx, cancel := context.WithCancel(context.Background())
	ps := sm.rdb.Subscribe(ctx, roomChannel(room))

	sm.subs[room] = &subEntry{refCnt: 1, cancel: cancel}
	sm.mu.Unlock()

	go func() {
		defer ps.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ps.Channel():
				if !ok { // Redis connection closed.
					return
				}
				// Payloads are published already wrapped in the WS
				// envelope; forward them verbatim.
				sm.hub.Broadcast(room, []byte(m.Payload))
			}
		}
	}()
}

// Unsubscribe decrements the ref-counter and tears the Redis SUB down
// when the last occupant leaves the room.
func (sm *subscriptionManager) Unsubscribe(room string) {
	sm.mu.Lock()
	e, ok := sm.subs[room]
	if !ok {
		sm.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		sm.mu.Unlock()
		return
	}
	delete(sm.subs, room)
	sm.mu.Unlock()

	// Outside the lock → stop the fan-out goroutine.
	e.cancel()
}
