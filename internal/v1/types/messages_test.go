package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoomJoinedMessage_NeverNilState(t *testing.T) {
	msg := NewRoomJoinedMessage("room-a", 3, nil)

	assert.NotNil(t, msg.State)
	assert.Equal(t, 0, msg.StateEventCount)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"state":[]`)
}

func TestNewRoomJoinedMessage_CountsState(t *testing.T) {
	state := []Event{{Type: EventTypeDrawLine, Sequence: 1}, {Type: EventTypeClearCanvas, Sequence: 2}}
	msg := NewRoomJoinedMessage("room-a", 2, state)

	assert.Equal(t, MessageTypeRoomJoined, msg.Type)
	assert.Equal(t, 2, msg.StateEventCount)
	assert.Equal(t, 2, msg.UserCount)
}

func TestNewEventMessage_WireShape(t *testing.T) {
	ev := Event{
		Type:      EventTypeDrawLine,
		UserID:    "u1",
		RoomID:    "room-a",
		Timestamp: 1000,
		Sequence:  7,
	}

	data, err := json.Marshal(NewEventMessage(ev))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "EVENT", decoded["type"])

	inner := decoded["event"].(map[string]any)
	assert.Equal(t, "DRAW_LINE", inner["type"])
	assert.Equal(t, float64(7), inner["sequence"])
}

func TestEventSequenceOmittedWhenZero(t *testing.T) {
	data, err := json.Marshal(Event{Type: EventTypeDrawLine, UserID: "u1", Timestamp: 1})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sequence")
}

func TestClientText_WireStrings(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrInvalidFrame, "Invalid message format"},
		{ErrInvalidEvent, "Invalid event"},
		{ErrNotInRoom, "Not in a room"},
		{ErrConflict, "Event rejected due to conflict resolution"},
		{ErrSaturated, "Room event limit reached"},
		{ErrRoomNotFound, "Room not found"},
		{errors.New("something else"), "Internal error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClientText(tt.err))
	}
}

func TestClientText_MatchesWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("%w: stroke needs at least 2 points", ErrInvalidEvent)
	assert.Equal(t, "Invalid event", ClientText(wrapped))
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage(ErrNotInRoom)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ERROR","error":"Not in a room"}`, string(data))
}
