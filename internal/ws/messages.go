package ws

import "encoding/json"

// Envelope wraps every WS frame, both directions.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "rooms/join"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON object
}

// ──────────────────────────── Request / Response DTOs ─────────────────────────

// CreateRoomRequest is the body for "rooms/create".
type CreateRoomRequest struct {
	Room       string `json:"room"`
	Type       string `json:"type"`
	Credential string `json:"credential,omitempty"`
}

// JoinRoomRequest is the body for "rooms/join".
type JoinRoomRequest struct {
	Room       string `json:"room"`
	Name       string `json:"name"`
	Credential string `json:"credential,omitempty"`
}

// ChatMessageRequest is the body for "rooms/message".
type ChatMessageRequest struct {
	Room string `json:"room"`
	Body string `json:"body"`
}

// LeaveRoomRequest is the body for "rooms/leave".
type LeaveRoomRequest struct {
	Room string `json:"room"`
}

// StatusBody acknowledges create/join requests.
type StatusBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Empty ACK body for fire-and-forget events.
type AckBody struct{}

// ErrorBody is returned for protocol-level failures.
type ErrorBody struct {
	Error string `json:"error"`
}
