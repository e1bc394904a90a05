package presence

import "sync"

// Table tracks which live connections currently occupy which rooms, and
// under which display name. It is the only source of truth for live
// occupancy; nothing here is durable and a restart starts from empty.
//
// Occupant order is insertion order. Re-registering an existing
// (room, connection) pair renames the entry in place without moving it.
type Table struct {
	mu    sync.RWMutex
	rooms map[string]*roomEntry
}

type roomEntry struct {
	names map[string]string // connID -> display name
	order []string          // connIDs, insertion order
}

func NewTable() *Table {
	return &Table{rooms: make(map[string]*roomEntry)}
}

// Set binds connID to name inside room. It reports whether the connection
// already held an entry there (a rename rather than a first join).
func (t *Table) Set(room, connID, name string) (existed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.rooms[room]
	if !ok {
		e = &roomEntry{names: make(map[string]string)}
		t.rooms[room] = e
	}
	_, existed = e.names[connID]
	if !existed {
		e.order = append(e.order, connID)
	}
	e.names[connID] = name
	return existed
}

// Remove drops the entry for (room, connID) and returns the display name
// it held. ok is false when no such entry existed.
func (t *Table) Remove(room, connID string) (name string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, found := t.rooms[room]
	if !found {
		return "", false
	}
	name, ok = e.names[connID]
	if !ok {
		return "", false
	}
	delete(e.names, connID)
	for i, id := range e.order {
		if id == connID {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	if len(e.names) == 0 {
		delete(t.rooms, room)
	}
	return name, true
}

// Name returns the display name bound to (room, connID).
func (t *Table) Name(room, connID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.rooms[room]
	if !ok {
		return "", false
	}
	name, ok := e.names[connID]
	return name, ok
}

// Names returns the display names of a room's occupants in insertion
// order. Names are not unique within a room; duplicates are returned
// as-is.
func (t *Table) Names(room string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.rooms[room]
	if !ok {
		return []string{}
	}
	names := make([]string, 0, len(e.order))
	for _, id := range e.order {
		names = append(names, e.names[id])
	}
	return names
}

// Rooms returns every room in which connID currently holds an entry.
func (t *Table) Rooms(connID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var rooms []string
	for room, e := range t.rooms {
		if _, ok := e.names[connID]; ok {
			rooms = append(rooms, room)
		}
	}
	return rooms
}
