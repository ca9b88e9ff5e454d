package types

import "errors"

// Error taxonomy. Every failure surfaced to a client maps to exactly one of
// these sentinels; callers match with errors.Is so wrapped variants carrying
// detail still classify correctly.
var (
	// ErrInvalidFrame indicates the inbound frame could not be decoded or
	// carried an unknown type.
	ErrInvalidFrame = errors.New("invalid message format")

	// ErrInvalidEvent indicates the validator rejected the event payload.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrNotInRoom indicates a whiteboard event arrived from a session that
	// has not joined a room.
	ErrNotInRoom = errors.New("not in a room")

	// ErrConflict indicates the conflict resolver dropped the event.
	ErrConflict = errors.New("event rejected due to conflict resolution")

	// ErrSaturated indicates the per-room event log cap was hit.
	ErrSaturated = errors.New("room event limit reached")

	// ErrRoomNotFound indicates a lookup for a room with no coordinator.
	ErrRoomNotFound = errors.New("room not found")
)

// ClientText returns the string carried in an ERROR frame for err. The exact
// wording is part of the wire contract and must not drift.
func ClientText(err error) string {
	switch {
	case errors.Is(err, ErrInvalidFrame):
		return "Invalid message format"
	case errors.Is(err, ErrInvalidEvent):
		return "Invalid event"
	case errors.Is(err, ErrNotInRoom):
		return "Not in a room"
	case errors.Is(err, ErrConflict):
		return "Event rejected due to conflict resolution"
	case errors.Is(err, ErrSaturated):
		return "Room event limit reached"
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found"
	}
	return "Internal error"
}
