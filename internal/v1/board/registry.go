package board

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/drawdeck/whiteboard/backend/go/internal/v1/logging"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/metrics"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/types"
	"go.uber.org/zap"
)

// Registry maps room ids to their coordinators. There is exactly one Registry
// per process, created in main and injected into every entry point (the
// WebSocket hub and the HTTP handlers), so an event submitted over HTTP lands
// in the same log a WebSocket member reads.
//
// Rooms are created lazily on first use and persist while the process runs;
// membership dropping to zero does not destroy a room, so late joiners still
// see history. Destruction happens through Drop (the administrative delete)
// or, when IdleTTL is configured, after a room has gone that long without an
// accepted event.
type Registry struct {
	mu         sync.Mutex
	rooms      map[types.RoomIDType]*Coordinator
	idleTimers map[types.RoomIDType]*time.Timer

	alloc *Allocator
	cfg   Config
}

// NewRegistry creates an empty registry with a fresh process-wide allocator.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		rooms:      make(map[types.RoomIDType]*Coordinator),
		idleTimers: make(map[types.RoomIDType]*time.Timer),
		alloc:      NewAllocator(),
		cfg:        cfg,
	}
}

// GetOrCreate returns the coordinator for roomID, installing a fresh one
// atomically if the room does not exist yet.
func (r *Registry) GetOrCreate(roomID types.RoomIDType) *Coordinator {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.rooms[roomID]; ok {
		return c
	}

	logging.Info(context.Background(), "Creating new room", zap.String("roomId", string(roomID)))
	c := NewCoordinator(roomID, r.alloc, r.cfg)
	r.rooms[roomID] = c
	metrics.ActiveRooms.Inc()

	if r.cfg.IdleTTL > 0 {
		r.scheduleIdleCheckLocked(roomID, r.cfg.IdleTTL)
	}
	return c
}

// Get returns the coordinator for roomID, or nil if the room does not exist.
func (r *Registry) Get(roomID types.RoomIDType) *Coordinator {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[roomID]
}

// Drop resets and removes the room, allowing its coordinator to be collected.
// Dropping an absent room is a no-op.
func (r *Registry) Drop(roomID types.RoomIDType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked(roomID)
}

func (r *Registry) dropLocked(roomID types.RoomIDType) {
	c, ok := r.rooms[roomID]
	if !ok {
		return
	}
	if t, ok := r.idleTimers[roomID]; ok {
		t.Stop()
		delete(r.idleTimers, roomID)
	}
	c.Reset()
	delete(r.rooms, roomID)
	metrics.ActiveRooms.Dec()
	logging.Info(context.Background(), "Dropped room", zap.String("roomId", string(roomID)))
}

// List returns a snapshot of the active room ids, sorted for stable output.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of active rooms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// scheduleIdleCheckLocked arms the eviction timer for roomID. When it fires,
// the room is dropped if its last accepted event is older than the TTL;
// otherwise the timer is re-armed for the remainder. Caller holds r.mu.
func (r *Registry) scheduleIdleCheckLocked(roomID types.RoomIDType, after time.Duration) {
	if existing, ok := r.idleTimers[roomID]; ok {
		existing.Stop()
	}
	r.idleTimers[roomID] = time.AfterFunc(after, func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		c, ok := r.rooms[roomID]
		if !ok {
			delete(r.idleTimers, roomID)
			return
		}
		idle := time.Since(c.LastActivity())
		if idle >= r.cfg.IdleTTL {
			logging.Info(context.Background(), "Evicting idle room",
				zap.String("roomId", string(roomID)),
				zap.Duration("idle", idle))
			r.dropLocked(roomID)
			return
		}
		r.scheduleIdleCheckLocked(roomID, r.cfg.IdleTTL-idle)
	})
}

// Shutdown stops all idle timers. Coordinators hold no goroutines or
// sockets, so there is nothing else to release.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.idleTimers {
		t.Stop()
		delete(r.idleTimers, id)
	}
}
