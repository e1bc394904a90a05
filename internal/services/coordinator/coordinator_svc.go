package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"chatroomsgo/internal/presence"
	"chatroomsgo/internal/services/room"
)

var (
	ErrMissingFields   = errors.New("missing required fields")
	ErrWrongCredential = errors.New("wrong room credential")
)

// UnknownSender labels messages from connections that never joined the
// room they post to. Kept permissive on purpose: live chat accepts the
// message and history records it under this sentinel.
const UnknownSender = "Unknown"

// RoomStore is the durable room registry as the coordinator sees it.
type RoomStore interface {
	CreateRoom(ctx context.Context, name, accessType, credential string) error
	GetRoom(ctx context.Context, name string) (*room.RoomDTO, error)
}

// MessageLog is the durable message pipeline. Append is best-effort from
// the coordinator's point of view.
type MessageLog interface {
	Append(ctx context.Context, room, sender, body string, ts int64) error
}

// Delivery is the transport collaborator: per-room group membership and
// room-scoped or global fan-out.
type Delivery interface {
	JoinGroup(room, connID string)
	LeaveGroup(room, connID string)
	Broadcast(ctx context.Context, room, event string, body any) error
	BroadcastAll(ctx context.Context, event string, body any) error
}

// Broadcast bodies.
type ChatMessage struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
	TS     int64  `json:"ts"`
}

type SystemNotice struct {
	Text string `json:"text"`
}

type OccupantList struct {
	Names []string `json:"names"`
}

type IRoomCoordinator interface {
	CreateRoom(ctx context.Context, name, accessType, credential string) error
	JoinRoom(ctx context.Context, connID, roomName, displayName, credential string) error
	SendMessage(ctx context.Context, connID, roomName, body string)
	LeaveRoom(ctx context.Context, connID, roomName string)
	DisconnectCleanup(connID string) []string
}

// roomCoordinator reconciles the durable registry, the in-memory
// presence table and the live broadcast groups. Every mutation of a
// room's presence set, together with the broadcasts it triggers, runs
// under that room's gate so occupant lists never interleave or go stale.
type roomCoordinator struct {
	rooms    RoomStore
	log      MessageLog
	presence *presence.Table
	delivery Delivery
	gates    sync.Map // room name -> *roomGate
}

// roomGate is a room's mutual-exclusion domain. lastTS keeps the room's
// logical timestamps non-decreasing even if the wall clock steps back.
type roomGate struct {
	sync.Mutex
	lastTS int64
}

func NewRoomCoordinator(rooms RoomStore, log MessageLog, delivery Delivery) IRoomCoordinator {
	return &roomCoordinator{
		rooms:    rooms,
		log:      log,
		presence: presence.NewTable(),
		delivery: delivery,
	}
}

func (c *roomCoordinator) gate(roomName string) *roomGate {
	g, _ := c.gates.LoadOrStore(roomName, &roomGate{})
	return g.(*roomGate)
}

func (c *roomCoordinator) CreateRoom(ctx context.Context, name, accessType, credential string) error {
	if name == "" || accessType == "" {
		return ErrMissingFields
	}
	if accessType == room.AccessProtected && credential == "" {
		return ErrMissingFields
	}

	if err := c.rooms.CreateRoom(ctx, name, accessType, credential); err != nil {
		return err
	}

	// Everyone gets to refresh their discoverable room list.
	if err := c.delivery.BroadcastAll(ctx, "changed", nil); err != nil {
		zap.L().Warn("coordinator.rooms_changed", zap.Error(err))
	}
	return nil
}

func (c *roomCoordinator) JoinRoom(ctx context.Context, connID, roomName, displayName, credential string) error {
	if roomName == "" || displayName == "" {
		return ErrMissingFields
	}

	r, err := c.rooms.GetRoom(ctx, roomName)
	if err != nil {
		return err
	}
	if r.Protected() && r.Credential != credential {
		return ErrWrongCredential
	}

	g := c.gate(roomName)
	g.Lock()
	defer g.Unlock()

	// A re-join only renames the existing entry; the connection is
	// already in the broadcast group.
	if existed := c.presence.Set(roomName, connID, displayName); !existed {
		c.delivery.JoinGroup(roomName, connID)
	}

	c.notify(ctx, roomName, fmt.Sprintf("%s joined", displayName))
	return nil
}

// SendMessage is fire-and-forget: invalid input is dropped silently and
// the durable write never blocks or rolls back live delivery.
func (c *roomCoordinator) SendMessage(ctx context.Context, connID, roomName, body string) {
	if roomName == "" || body == "" {
		return
	}

	sender, ok := c.presence.Name(roomName, connID)
	if !ok {
		sender = UnknownSender
	}

	g := c.gate(roomName)
	g.Lock()
	ts := time.Now().UnixMilli()
	if ts < g.lastTS {
		ts = g.lastTS
	}
	g.lastTS = ts

	if err := c.delivery.Broadcast(ctx, roomName, "message",
		ChatMessage{Sender: sender, Body: body, TS: ts}); err != nil {
		zap.L().Warn("coordinator.broadcast_message",
			zap.String("room", roomName), zap.Error(err))
	}
	g.Unlock()

	// Best effort: a failure here means the message was seen live but
	// will be missing from history. That tradeoff is intentional.
	if err := c.log.Append(ctx, roomName, sender, body, ts); err != nil {
		zap.L().Warn("coordinator.persist_message",
			zap.String("room", roomName), zap.Error(err))
	}
}

func (c *roomCoordinator) LeaveRoom(ctx context.Context, connID, roomName string) {
	c.removeAndNotify(ctx, connID, roomName)
}

// DisconnectCleanup runs the leave path for every room the terminated
// connection occupied. It is not cancellable; a half-cleaned connection
// would leave ghost occupants behind.
func (c *roomCoordinator) DisconnectCleanup(connID string) []string {
	rooms := c.presence.Rooms(connID)
	for _, r := range rooms {
		c.removeAndNotify(context.Background(), connID, r)
	}
	return rooms
}

func (c *roomCoordinator) removeAndNotify(ctx context.Context, connID, roomName string) {
	g := c.gate(roomName)
	g.Lock()
	defer g.Unlock()

	name, ok := c.presence.Remove(roomName, connID)
	if !ok {
		return
	}
	c.delivery.LeaveGroup(roomName, connID)

	c.notify(ctx, roomName, fmt.Sprintf("%s left", name))
}

// notify broadcasts a system notice followed by the occupant list as it
// stands right now. Callers must hold the room's gate.
func (c *roomCoordinator) notify(ctx context.Context, roomName, text string) {
	if err := c.delivery.Broadcast(ctx, roomName, "notice", SystemNotice{Text: text}); err != nil {
		zap.L().Warn("coordinator.broadcast_notice",
			zap.String("room", roomName), zap.Error(err))
	}
	if err := c.delivery.Broadcast(ctx, roomName, "occupants",
		OccupantList{Names: c.presence.Names(roomName)}); err != nil {
		zap.L().Warn("coordinator.broadcast_occupants",
			zap.String("room", roomName), zap.Error(err))
	}
}
