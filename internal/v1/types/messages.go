package types

// Server-to-client message types. Every outbound frame is a JSON object
// discriminated by its "type" field.
const (
	MessageTypeConnected  = "CONNECTED"
	MessageTypeRoomJoined = "ROOM_JOINED"
	MessageTypeEvent      = "EVENT"
	MessageTypeError      = "ERROR"
)

// ConnectedMessage is sent once, immediately after the socket opens.
type ConnectedMessage struct {
	Type      string        `json:"type"`
	SessionID SessionIDType `json:"sessionId"`
	Message   string        `json:"message"`
}

// RoomJoinedMessage is sent to the joiner and carries the full room snapshot
// so the client can replay history before applying live events.
type RoomJoinedMessage struct {
	Type            string     `json:"type"`
	RoomID          RoomIDType `json:"roomId"`
	UserCount       int        `json:"userCount"`
	State           []Event    `json:"state"`
	StateEventCount int        `json:"stateEventCount"`
}

// EventMessage carries a single accepted, sequenced event. The originator is
// included in the broadcast set, which is how it learns the server-assigned
// sequence number.
type EventMessage struct {
	Type  string `json:"type"`
	Event Event  `json:"event"`
}

// ErrorMessage reports a local failure to the originating session only.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// NewConnectedMessage builds the greeting frame for a fresh session.
func NewConnectedMessage(sessionID SessionIDType, greeting string) ConnectedMessage {
	return ConnectedMessage{Type: MessageTypeConnected, SessionID: sessionID, Message: greeting}
}

// NewRoomJoinedMessage builds the snapshot frame for a joining session.
// State is never nil so the client always receives a JSON array.
func NewRoomJoinedMessage(roomID RoomIDType, userCount int, state []Event) RoomJoinedMessage {
	if state == nil {
		state = []Event{}
	}
	return RoomJoinedMessage{
		Type:            MessageTypeRoomJoined,
		RoomID:          roomID,
		UserCount:       userCount,
		State:           state,
		StateEventCount: len(state),
	}
}

// NewEventMessage wraps an accepted event for broadcast.
func NewEventMessage(ev Event) EventMessage {
	return EventMessage{Type: MessageTypeEvent, Event: ev}
}

// NewErrorMessage builds an ERROR frame from a taxonomy error.
func NewErrorMessage(err error) ErrorMessage {
	return ErrorMessage{Type: MessageTypeError, Error: ClientText(err)}
}
