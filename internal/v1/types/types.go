// Package types contains the shared domain model for the whiteboard backend:
// event definitions, wire message envelopes, validation, and the error
// taxonomy. It has no dependencies on the transport or board packages so that
// both can consume it freely.
package types

// --- Core Domain Types ---

// EventType discriminates the closed set of whiteboard events.
type EventType string

// RoomIDType represents a unique identifier for a whiteboard room.
type RoomIDType string

// SessionIDType represents a unique identifier for a connected socket.
type SessionIDType string

// Event type constants. DRAW_LINE and DRAW_PATH are stored and ordered
// identically; the distinction is a client rendering hint.
const (
	EventTypeDrawLine    EventType = "DRAW_LINE"
	EventTypeDrawPath    EventType = "DRAW_PATH"
	EventTypeErase       EventType = "ERASE"
	EventTypeClearCanvas EventType = "CLEAR_CANVAS"
	EventTypeJoinRoom    EventType = "JOIN_ROOM"
	EventTypeLeaveRoom   EventType = "LEAVE_ROOM"
)

// KnownEventType reports whether t is a member of the closed event set.
func KnownEventType(t EventType) bool {
	switch t {
	case EventTypeDrawLine, EventTypeDrawPath, EventTypeErase,
		EventTypeClearCanvas, EventTypeJoinRoom, EventTypeLeaveRoom:
		return true
	}
	return false
}

// Region describes the rectangle affected by an ERASE event.
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Event is the common envelope for every whiteboard action.
//
// RoomID and Timestamp are server-authoritative: they are overwritten on
// ingress from the session's current room and the server clock before
// validation runs. Sequence is assigned by the room coordinator at acceptance
// and is absent (zero) on client-emitted events.
type Event struct {
	Type      EventType  `json:"type"`
	UserID    string     `json:"userId"`
	RoomID    RoomIDType `json:"roomId"`
	Timestamp int64      `json:"timestamp"`
	Sequence  uint64     `json:"sequence,omitempty"`

	// DRAW_LINE payload
	Points [][]float64 `json:"points,omitempty"`
	// DRAW_PATH payload; same shape as Points
	Path [][]float64 `json:"path,omitempty"`

	Color       string  `json:"color,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`

	// ERASE payload
	Region *Region `json:"region,omitempty"`
}

// Stroke returns the coordinate sequence of a drawing event, regardless of
// whether the client sent it as points (DRAW_LINE) or path (DRAW_PATH).
func (e *Event) Stroke() [][]float64 {
	if e.Type == EventTypeDrawPath {
		return e.Path
	}
	return e.Points
}

// IsDrawing reports whether the event is one of the always-accepted drawing
// variants.
func (e *Event) IsDrawing() bool {
	switch e.Type {
	case EventTypeDrawLine, EventTypeDrawPath, EventTypeErase:
		return true
	}
	return false
}

// IsControl reports whether the event is a membership control frame. Control
// events never reach the conflict resolver and are never stored.
func (e *Event) IsControl() bool {
	return e.Type == EventTypeJoinRoom || e.Type == EventTypeLeaveRoom
}

// IsStorable reports whether the event may appear in a room's event log.
func (e *Event) IsStorable() bool {
	return e.IsDrawing() || e.Type == EventTypeClearCanvas
}
