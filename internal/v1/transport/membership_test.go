package transport

import (
	"testing"

	"github.com/drawdeck/whiteboard/backend/go/internal/v1/types"
	"github.com/stretchr/testify/assert"
)

func newTestClient(id string) *Client {
	return &Client{
		conn:      &MockConnection{},
		sessionID: types.SessionIDType(id),
		send:      make(chan []byte, outboundQueueSize),
	}
}

func TestMembership_JoinAndRoomOf(t *testing.T) {
	m := NewMembership()
	c := newTestClient("s1")

	count := m.Join("room-a", c)
	assert.Equal(t, 1, count)

	roomID, ok := m.RoomOf(c)
	assert.True(t, ok)
	assert.Equal(t, types.RoomIDType("room-a"), roomID)
	assert.Equal(t, 1, m.Count("room-a"))
}

func TestMembership_JoinMovesBetweenRooms(t *testing.T) {
	m := NewMembership()
	c := newTestClient("s1")

	m.Join("room-a", c)
	count := m.Join("room-b", c)

	// Single-room invariant: the client left room-a implicitly.
	assert.Equal(t, 1, count)
	assert.Equal(t, 0, m.Count("room-a"))
	assert.Equal(t, 1, m.Count("room-b"))

	roomID, ok := m.RoomOf(c)
	assert.True(t, ok)
	assert.Equal(t, types.RoomIDType("room-b"), roomID)
}

func TestMembership_RejoinSameRoomIsIdempotent(t *testing.T) {
	m := NewMembership()
	c := newTestClient("s1")

	m.Join("room-a", c)
	count := m.Join("room-a", c)

	assert.Equal(t, 1, count)
	assert.Equal(t, 1, m.Count("room-a"))
}

func TestMembership_LeaveAndDisconnect(t *testing.T) {
	m := NewMembership()
	c1 := newTestClient("s1")
	c2 := newTestClient("s2")

	m.Join("room-a", c1)
	m.Join("room-a", c2)
	assert.Equal(t, 2, m.Count("room-a"))

	m.Leave("room-a", c1)
	assert.Equal(t, 1, m.Count("room-a"))
	_, ok := m.RoomOf(c1)
	assert.False(t, ok)

	roomID, ok := m.Disconnect(c2)
	assert.True(t, ok)
	assert.Equal(t, types.RoomIDType("room-a"), roomID)
	assert.Equal(t, 0, m.Count("room-a"))
}

func TestMembership_LeaveWrongRoomIsNoOp(t *testing.T) {
	m := NewMembership()
	c := newTestClient("s1")

	m.Join("room-a", c)
	m.Leave("room-b", c)

	assert.Equal(t, 1, m.Count("room-a"))
	roomID, ok := m.RoomOf(c)
	assert.True(t, ok)
	assert.Equal(t, types.RoomIDType("room-a"), roomID)
}

func TestMembership_DisconnectUnknownClient(t *testing.T) {
	m := NewMembership()
	c := newTestClient("s1")

	_, ok := m.Disconnect(c)
	assert.False(t, ok)
}

func TestMembership_MembersOfIsSnapshot(t *testing.T) {
	m := NewMembership()
	c1 := newTestClient("s1")
	c2 := newTestClient("s2")

	m.Join("room-a", c1)
	m.Join("room-a", c2)

	members := m.MembersOf("room-a")
	assert.Len(t, members, 2)
	assert.ElementsMatch(t, []*Client{c1, c2}, members)

	// Mutating the table after the snapshot must not affect it.
	m.Disconnect(c1)
	assert.Len(t, members, 2)
	assert.Len(t, m.MembersOf("room-a"), 1)
}

func TestMembership_EmptyRoomHasNoMembers(t *testing.T) {
	m := NewMembership()
	assert.Nil(t, m.MembersOf("ghost"))
	assert.Equal(t, 0, m.Count("ghost"))
}
