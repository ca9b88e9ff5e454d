package board

import (
	"fmt"

	"github.com/drawdeck/whiteboard/backend/go/internal/v1/types"
)

// Log is the ordered, append-only container of accepted events for one room.
// It is not safe for concurrent use; the owning coordinator serializes all
// access.
//
// CLEAR_CANVAS events are appended like any other event. Clients replay the
// log in order and wipe their canvas when they encounter one; the log itself
// is never truncated by a clear. Only Clear (the administrative reset) drops
// events.
type Log struct {
	events []types.Event
	cap    int
}

// NewLog creates a log with a soft cap. A cap of zero means unbounded.
func NewLog(cap int) *Log {
	return &Log{cap: cap}
}

// Append adds ev at the end of the log. The event must carry the next
// contiguous sequence number and be a storable type; the coordinator
// guarantees both, and a violation here is a programming error surfaced as an
// error rather than silent corruption.
//
// When the soft cap is reached Append returns ErrSaturated and stores
// nothing. Callers must check saturation with Full before allocating a
// sequence number, otherwise the rejected allocation would leave a gap.
func (l *Log) Append(ev types.Event) error {
	if !ev.IsStorable() {
		return fmt.Errorf("%w: %s events are never stored", types.ErrInvalidEvent, ev.Type)
	}
	if l.Full() {
		return types.ErrSaturated
	}
	if want := l.lastSequence() + 1; ev.Sequence != want {
		return fmt.Errorf("log append out of order: got sequence %d, want %d", ev.Sequence, want)
	}
	l.events = append(l.events, ev)
	return nil
}

// Full reports whether the log has reached its soft cap.
func (l *Log) Full() bool {
	return l.cap > 0 && len(l.events) >= l.cap
}

// Len returns the number of stored events.
func (l *Log) Len() int {
	return len(l.events)
}

// Snapshot returns an independent copy of the full ordered sequence.
func (l *Log) Snapshot() []types.Event {
	out := make([]types.Event, len(l.events))
	copy(out, l.events)
	return out
}

// Since returns an independent copy of the events with sequence strictly
// greater than seq, in order. Since(0) equals Snapshot.
func (l *Log) Since(seq uint64) []types.Event {
	// Sequences are contiguous from 1, so seq doubles as an index.
	if seq >= uint64(len(l.events)) {
		return []types.Event{}
	}
	tail := l.events[seq:]
	out := make([]types.Event, len(tail))
	copy(out, tail)
	return out
}

// Clear drops all events. The caller resets the companion sequence allocator
// in the same critical section.
func (l *Log) Clear() {
	l.events = nil
}

// view exposes the backing slice for read-only use inside the coordinator's
// critical section. Callers must not retain or mutate it.
func (l *Log) view() []types.Event {
	return l.events
}

func (l *Log) lastSequence() uint64 {
	if len(l.events) == 0 {
		return 0
	}
	return l.events[len(l.events)-1].Sequence
}
