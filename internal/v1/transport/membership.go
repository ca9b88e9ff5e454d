package transport

import (
	"sync"

	"github.com/drawdeck/whiteboard/backend/go/internal/v1/metrics"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/types"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Membership tracks which sessions are in which room: two coupled maps under
// one mutex. The invariant is that a client appears in a room's set exactly
// when that room is the client's current room; every mutation updates both
// maps in the same critical section.
//
// Snapshots returned by MembersOf and Sessions are independent copies so the
// fan-out can iterate without holding the table lock.
type Membership struct {
	mu       sync.Mutex
	rooms    map[types.RoomIDType]sets.Set[*Client]
	sessions map[*Client]types.RoomIDType
}

// NewMembership creates an empty membership table.
func NewMembership() *Membership {
	return &Membership{
		rooms:    make(map[types.RoomIDType]sets.Set[*Client]),
		sessions: make(map[*Client]types.RoomIDType),
	}
}

// Join puts client into roomID, leaving its previous room first if it had
// one. A session is in at most one room at a time. Returns the member count
// of roomID after the join.
func (m *Membership) Join(roomID types.RoomIDType, client *Client) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.sessions[client]; ok {
		if prev == roomID {
			return m.rooms[roomID].Len()
		}
		m.leaveLocked(prev, client)
	}

	members, ok := m.rooms[roomID]
	if !ok {
		members = sets.New[*Client]()
		m.rooms[roomID] = members
	}
	members.Insert(client)
	m.sessions[client] = roomID

	count := members.Len()
	metrics.RoomMembers.WithLabelValues(string(roomID)).Set(float64(count))
	return count
}

// Leave removes client from roomID. Removing a client that is not in the
// room is a no-op.
func (m *Membership) Leave(roomID types.RoomIDType, client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[client] != roomID {
		return
	}
	m.leaveLocked(roomID, client)
}

// Disconnect removes client from whichever room it is in, if any. Returns
// the room it left.
func (m *Membership) Disconnect(client *Client) (types.RoomIDType, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	roomID, ok := m.sessions[client]
	if !ok {
		return "", false
	}
	m.leaveLocked(roomID, client)
	return roomID, true
}

// leaveLocked removes client from both maps. When the room's set empties the
// room key is removed too; the coordinator in the registry is unaffected.
// Caller holds m.mu.
func (m *Membership) leaveLocked(roomID types.RoomIDType, client *Client) {
	delete(m.sessions, client)
	members, ok := m.rooms[roomID]
	if !ok {
		return
	}
	members.Delete(client)
	if members.Len() == 0 {
		delete(m.rooms, roomID)
		metrics.RoomMembers.DeleteLabelValues(string(roomID))
		return
	}
	metrics.RoomMembers.WithLabelValues(string(roomID)).Set(float64(members.Len()))
}

// MembersOf returns an independent snapshot of the sessions in roomID.
func (m *Membership) MembersOf(roomID types.RoomIDType) []*Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, ok := m.rooms[roomID]
	if !ok {
		return nil
	}
	return members.UnsortedList()
}

// RoomOf returns the client's current room.
func (m *Membership) RoomOf(client *Client) (types.RoomIDType, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	roomID, ok := m.sessions[client]
	return roomID, ok
}

// Count returns the member count of roomID.
func (m *Membership) Count(roomID types.RoomIDType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if members, ok := m.rooms[roomID]; ok {
		return members.Len()
	}
	return 0
}

// Sessions returns an independent snapshot of every tracked session,
// including those not currently in a room only if they joined one before.
func (m *Membership) Sessions() []*Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Client, 0, len(m.sessions))
	for c := range m.sessions {
		out = append(out, c)
	}
	return out
}
