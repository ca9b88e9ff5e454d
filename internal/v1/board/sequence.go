// Package board implements the per-room state machine: sequence allocation,
// validation-adjacent conflict resolution, the append-only event log, the
// single-writer room coordinator, and the registry that owns coordinators.
//
// Concurrency model: all mutations for one room are serialized by that room's
// coordinator mutex. Different rooms proceed in parallel. The allocator and
// registry carry their own short-lived locks because they are shared across
// rooms.
package board

import (
	"sync"

	"github.com/drawdeck/whiteboard/backend/go/internal/v1/types"
)

// Allocator hands out monotonic sequence numbers per room. Counters start at
// zero; Next returns the post-increment value, so the first accepted event in
// a room is sequence 1.
type Allocator struct {
	mu       sync.RWMutex
	counters map[types.RoomIDType]uint64
}

// NewAllocator creates an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{counters: make(map[types.RoomIDType]uint64)}
}

// Next increments and returns the counter for roomID.
func (a *Allocator) Next(roomID types.RoomIDType) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counters[roomID]++
	return a.counters[roomID]
}

// Current reads the counter for roomID without mutating it.
func (a *Allocator) Current(roomID types.RoomIDType) uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.counters[roomID]
}

// Reset sets the counter for roomID back to zero. Called together with the
// companion log's Clear.
func (a *Allocator) Reset(roomID types.RoomIDType) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.counters, roomID)
}
