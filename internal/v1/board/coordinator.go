package board

import (
	"context"
	"sync"
	"time"

	"github.com/drawdeck/whiteboard/backend/go/internal/v1/logging"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/types"
	"go.uber.org/zap"
)

// Config carries the tunables of the room state machine.
type Config struct {
	// ClearCooldown is the minimum timestamp gap between two accepted
	// CLEAR_CANVAS events in the same room.
	ClearCooldown time.Duration
	// MaxEventsPerRoom is the soft cap on the event log; zero is unbounded.
	MaxEventsPerRoom int
	// IdleTTL evicts rooms with no accepted event for this long; zero
	// disables eviction.
	IdleTTL time.Duration
}

// DefaultConfig matches the recognized configuration defaults.
func DefaultConfig() Config {
	return Config{
		ClearCooldown:    time.Second,
		MaxEventsPerRoom: 10000,
	}
}

// Coordinator is the single-writer owner of one room's sequence counter and
// event log. Every submission for the room flows through Submit under the
// coordinator mutex, which is the invariant that makes sequence numbers equal
// append order. Rooms do not contend with each other.
type Coordinator struct {
	roomID types.RoomIDType

	mu           sync.Mutex
	alloc        *Allocator
	log          *Log
	cfg          Config
	lastAccepted time.Time
}

// NewCoordinator creates the coordinator for roomID, sharing the
// process-wide allocator.
func NewCoordinator(roomID types.RoomIDType, alloc *Allocator, cfg Config) *Coordinator {
	return &Coordinator{
		roomID:       roomID,
		alloc:        alloc,
		log:          NewLog(cfg.MaxEventsPerRoom),
		cfg:          cfg,
		lastAccepted: time.Now(),
	}
}

// RoomID returns the room this coordinator owns.
func (c *Coordinator) RoomID() types.RoomIDType {
	return c.roomID
}

// Submit runs the acceptance pipeline for one validated event: conflict
// resolution against the accepted history, sequence assignment, and append.
// On success it returns the stored event, sequence set. On failure it returns
// ErrConflict or ErrSaturated and stores nothing.
//
// The ctx is used for logging only; Submit performs no I/O and never blocks
// on anything but the room's own serialization.
func (c *Coordinator) Submit(ctx context.Context, ev *types.Event) (types.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := Resolve(c.log.view(), ev, c.cfg.ClearCooldown); err != nil {
		logging.Warn(ctx, "Event rejected by resolver",
			zap.String("roomId", string(c.roomID)),
			zap.String("eventType", string(ev.Type)),
			zap.Error(err))
		return types.Event{}, err
	}

	// Check saturation before allocating so a rejected event never burns a
	// sequence number; the counter and log must stay gapless.
	if c.log.Full() {
		return types.Event{}, types.ErrSaturated
	}

	stored := *ev
	stored.Sequence = c.alloc.Next(c.roomID)
	if err := c.log.Append(stored); err != nil {
		logging.Error(ctx, "Log append failed after resolution",
			zap.String("roomId", string(c.roomID)),
			zap.Uint64("sequence", stored.Sequence),
			zap.Error(err))
		return types.Event{}, err
	}

	c.lastAccepted = time.Now()
	return stored, nil
}

// State returns the full ordered snapshot, as sent in ROOM_JOINED.
func (c *Coordinator) State() []types.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.Snapshot()
}

// StateSince returns the events with sequence strictly greater than seq, for
// incremental catch-up.
func (c *Coordinator) StateSince(seq uint64) []types.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.Since(seq)
}

// EventCount returns the number of stored events.
func (c *Coordinator) EventCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.Len()
}

// Reset clears the log and the room's sequence counter. This is the
// administrative delete; the CLEAR_CANVAS event does not invoke it.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log.Clear()
	c.alloc.Reset(c.roomID)
}

// LastActivity returns the time of the most recent accepted event, or the
// coordinator's creation time if none was accepted yet. The registry uses it
// for idle eviction.
func (c *Coordinator) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastAccepted
}
