package types

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
)

// Validation bounds for inbound events. MaxPoints caps the stroke length so a
// single frame cannot carry an unbounded coordinate list.
type Limits struct {
	MaxPoints int
}

// DefaultLimits matches the recognized configuration defaults.
var DefaultLimits = Limits{MaxPoints: 1000}

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ParseFrame decodes an untrusted inbound frame into an Event. It returns
// ErrInvalidFrame when the payload is not JSON, has no type, or has a type
// outside the closed set. Structural validation of the payload fields is
// ValidateEvent's job; ParseFrame only guarantees a decodable, known-typed
// envelope.
func ParseFrame(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrInvalidFrame)
	}
	if !KnownEventType(ev.Type) {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidFrame, ev.Type)
	}
	return &ev, nil
}

// ValidateHeader checks the fields every event must carry. The server
// overwrites RoomID and Timestamp before this runs, so a failure here means
// the client omitted userId or the session had no room to stamp.
func ValidateHeader(e *Event) error {
	if !KnownEventType(e.Type) {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	if e.UserID == "" {
		return fmt.Errorf("%w: empty userId", ErrInvalidEvent)
	}
	if e.RoomID == "" {
		return fmt.Errorf("%w: empty roomId", ErrInvalidEvent)
	}
	if e.Timestamp <= 0 {
		return fmt.Errorf("%w: invalid timestamp %d", ErrInvalidEvent, e.Timestamp)
	}
	return nil
}

// ValidateEvent is the event validator: a pure accept/reject decision over a
// decoded event. On accept the event is safe to resolve, sequence, and store.
// It never mutates its argument and never reads the clock.
func ValidateEvent(e *Event, limits Limits) error {
	if err := ValidateHeader(e); err != nil {
		return err
	}

	switch e.Type {
	case EventTypeDrawLine, EventTypeDrawPath:
		return validateStroke(e, limits)
	case EventTypeErase:
		return validateRegion(e.Region)
	case EventTypeClearCanvas, EventTypeJoinRoom, EventTypeLeaveRoom:
		// Header only; extra fields are ignored.
		return nil
	}
	return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
}

func validateStroke(e *Event, limits Limits) error {
	stroke := e.Stroke()
	if len(stroke) < 2 {
		return fmt.Errorf("%w: stroke needs at least 2 points, got %d", ErrInvalidEvent, len(stroke))
	}
	if limits.MaxPoints > 0 && len(stroke) > limits.MaxPoints {
		return fmt.Errorf("%w: stroke exceeds %d points", ErrInvalidEvent, limits.MaxPoints)
	}
	for i, p := range stroke {
		if len(p) != 2 {
			return fmt.Errorf("%w: point %d is not a coordinate pair", ErrInvalidEvent, i)
		}
		if !isFinite(p[0]) || !isFinite(p[1]) {
			return fmt.Errorf("%w: point %d has non-finite coordinates", ErrInvalidEvent, i)
		}
	}
	if !colorPattern.MatchString(e.Color) {
		return fmt.Errorf("%w: color %q is not #RRGGBB", ErrInvalidEvent, e.Color)
	}
	if !isFinite(e.StrokeWidth) || e.StrokeWidth <= 0 || e.StrokeWidth > 100 {
		return fmt.Errorf("%w: strokeWidth %v out of range (0, 100]", ErrInvalidEvent, e.StrokeWidth)
	}
	return nil
}

func validateRegion(r *Region) error {
	if r == nil {
		return fmt.Errorf("%w: missing region", ErrInvalidEvent)
	}
	if !isFinite(r.X) || !isFinite(r.Y) || !isFinite(r.Width) || !isFinite(r.Height) {
		return fmt.Errorf("%w: region has non-finite bounds", ErrInvalidEvent)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: region dimensions must be positive", ErrInvalidEvent)
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
