package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/drawdeck/whiteboard/backend/go/internal/v1/logging"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/metrics"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/types"
	"go.uber.org/zap"
)

// route decodes one inbound frame and dispatches it by type. Control frames
// touch membership and the registry; whiteboard frames run the full
// submission pipeline. Every failure is reported to the originating session
// only and never propagates to other sessions or rooms.
func (h *Hub) route(ctx context.Context, client *Client, data []byte) {
	start := time.Now()

	ev, err := types.ParseFrame(data)
	if err != nil {
		logging.Warn(ctx, "Rejected undecodable frame",
			zap.String("sessionId", string(client.sessionID)), zap.Error(err))
		client.SendError(err)
		return
	}

	switch ev.Type {
	case types.EventTypeJoinRoom:
		h.handleJoin(ctx, client, ev)
	case types.EventTypeLeaveRoom:
		h.handleLeave(ctx, client, ev)
	default:
		h.handleBoardEvent(ctx, client, ev)
	}

	metrics.EventProcessingDuration.WithLabelValues(string(ev.Type)).Observe(time.Since(start).Seconds())
}

// handleJoin puts the session into the requested room and replies with the
// full room snapshot. The room is created lazily if this is its first use.
func (h *Hub) handleJoin(ctx context.Context, client *Client, ev *types.Event) {
	if ev.UserID == "" || ev.RoomID == "" {
		client.SendError(fmt.Errorf("%w: JOIN_ROOM requires userId and roomId", types.ErrInvalidEvent))
		return
	}

	userCount := h.membership.Join(ev.RoomID, client)
	coordinator := h.registry.GetOrCreate(ev.RoomID)

	logging.Info(ctx, "Session joined room",
		zap.String("sessionId", string(client.sessionID)),
		zap.String("roomId", string(ev.RoomID)),
		zap.String("userId", ev.UserID),
		zap.Int("userCount", userCount))

	client.Send(types.NewRoomJoinedMessage(ev.RoomID, userCount, coordinator.State()))
}

// handleLeave removes the session from the named room. Leaving a room the
// session is not in is a no-op.
func (h *Hub) handleLeave(ctx context.Context, client *Client, ev *types.Event) {
	if ev.UserID == "" || ev.RoomID == "" {
		client.SendError(fmt.Errorf("%w: LEAVE_ROOM requires userId and roomId", types.ErrInvalidEvent))
		return
	}

	h.membership.Leave(ev.RoomID, client)
	logging.Info(ctx, "Session left room",
		zap.String("sessionId", string(client.sessionID)),
		zap.String("roomId", string(ev.RoomID)))
}

// handleBoardEvent runs the submission pipeline for a whiteboard frame:
// normalize, validate, submit to the room coordinator, broadcast on accept.
func (h *Hub) handleBoardEvent(ctx context.Context, client *Client, ev *types.Event) {
	roomID, ok := h.membership.RoomOf(client)
	if !ok {
		metrics.EventsTotal.WithLabelValues(string(ev.Type), "not_in_room").Inc()
		client.SendError(types.ErrNotInRoom)
		return
	}

	// Server-authoritative fields; client-supplied values are never trusted.
	ev.RoomID = roomID
	ev.Timestamp = h.now().UnixMilli()
	ev.Sequence = 0

	if err := types.ValidateEvent(ev, h.limits); err != nil {
		metrics.EventsTotal.WithLabelValues(string(ev.Type), "invalid").Inc()
		logging.Warn(ctx, "Event failed validation",
			zap.String("sessionId", string(client.sessionID)),
			zap.String("roomId", string(roomID)),
			zap.Error(err))
		client.SendError(err)
		return
	}

	stored, err := h.registry.GetOrCreate(roomID).Submit(ctx, ev)
	if err != nil {
		metrics.EventsTotal.WithLabelValues(string(ev.Type), submitStatus(err)).Inc()
		client.SendError(err)
		return
	}

	metrics.EventsTotal.WithLabelValues(string(ev.Type), "accepted").Inc()
	h.Publish(roomID, types.NewEventMessage(stored))
}

func submitStatus(err error) string {
	switch {
	case errors.Is(err, types.ErrConflict):
		return "conflict"
	case errors.Is(err, types.ErrSaturated):
		return "saturated"
	}
	return "error"
}
