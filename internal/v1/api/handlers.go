// Package api exposes the HTTP administration surface: room inspection,
// room deletion, and event submission for non-WebSocket clients.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/drawdeck/whiteboard/backend/go/internal/v1/board"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/logging"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/metrics"
	"github.com/drawdeck/whiteboard/backend/go/internal/v1/types"
	"go.uber.org/zap"
)

// Broadcaster fans an accepted event out to the room's connected sessions.
// The WebSocket hub implements it; tests substitute a recorder.
type Broadcaster interface {
	Publish(roomID types.RoomIDType, msg any)
}

// Handler serves the admin endpoints. It shares the process-wide registry
// with the WebSocket hub, so events submitted here land in the same log that
// connected sessions read, and accepted events reach them through the
// broadcaster.
type Handler struct {
	registry    *board.Registry
	broadcaster Broadcaster
	limits      types.Limits

	now func() time.Time
}

// NewHandler creates the admin handler around the shared registry.
// broadcaster may be nil; events are then stored without fan-out.
func NewHandler(registry *board.Registry, broadcaster Broadcaster, limits types.Limits) *Handler {
	return &Handler{
		registry:    registry,
		broadcaster: broadcaster,
		limits:      limits,
		now:         time.Now,
	}
}

// ListRooms handles GET /rooms.
func (h *Handler) ListRooms(c *gin.Context) {
	rooms := h.registry.List()
	c.JSON(http.StatusOK, gin.H{
		"rooms": rooms,
		"count": len(rooms),
	})
}

// RoomState handles GET /rooms/:roomId/state. Unknown rooms are 404; the
// lookup never creates a room.
func (h *Handler) RoomState(c *gin.Context) {
	roomID := types.RoomIDType(c.Param("roomId"))

	coordinator := h.registry.Get(roomID)
	if coordinator == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": types.ClientText(types.ErrRoomNotFound)})
		return
	}

	state := coordinator.State()
	c.JSON(http.StatusOK, gin.H{
		"roomId":     roomID,
		"events":     state,
		"eventCount": len(state),
		"exists":     true,
	})
}

// DeleteRoom handles DELETE /rooms/:roomId: the administrative reset that
// clears the log and sequence counter and removes the room.
func (h *Handler) DeleteRoom(c *gin.Context) {
	roomID := types.RoomIDType(c.Param("roomId"))

	if h.registry.Get(roomID) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": types.ClientText(types.ErrRoomNotFound)})
		return
	}

	h.registry.Drop(roomID)
	logging.Info(c.Request.Context(), "Room deleted via admin API",
		zap.String("roomId", string(roomID)))

	c.JSON(http.StatusOK, gin.H{
		"roomId":  roomID,
		"deleted": true,
	})
}

// RoomEvents handles GET /events/:roomId?after=N, returning the events with
// sequence strictly greater than N. Omitting after returns the full log.
func (h *Handler) RoomEvents(c *gin.Context) {
	roomID := types.RoomIDType(c.Param("roomId"))

	coordinator := h.registry.Get(roomID)
	if coordinator == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": types.ClientText(types.ErrRoomNotFound)})
		return
	}

	var after uint64
	if raw := c.Query("after"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "after must be a non-negative integer"})
			return
		}
		after = parsed
	}

	events := coordinator.StateSince(after)
	if events == nil {
		events = []types.Event{}
	}
	c.JSON(http.StatusOK, gin.H{
		"roomId": roomID,
		"events": events,
		"count":  len(events),
	})
}

// submitRequest is the POST /events body.
type submitRequest struct {
	RoomID types.RoomIDType `json:"roomId"`
	Event  types.Event      `json:"event"`
}

// SubmitEvent handles POST /events: the same pipeline a WebSocket frame runs
// (validate, resolve, sequence, append) followed by fan-out to the room's
// connected sessions. The room is created lazily, matching JOIN_ROOM.
func (h *Handler) SubmitEvent(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": types.ClientText(types.ErrInvalidFrame)})
		return
	}
	if req.RoomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId is required"})
		return
	}

	ev := req.Event
	if !types.KnownEventType(ev.Type) || !ev.IsStorable() {
		metrics.EventsTotal.WithLabelValues(string(ev.Type), "invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": types.ClientText(types.ErrInvalidEvent)})
		return
	}

	// Server-authoritative fields, same as the WebSocket path.
	ev.RoomID = req.RoomID
	ev.Timestamp = h.now().UnixMilli()
	ev.Sequence = 0

	if err := types.ValidateEvent(&ev, h.limits); err != nil {
		metrics.EventsTotal.WithLabelValues(string(ev.Type), "invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": types.ClientText(err)})
		return
	}

	stored, err := h.registry.GetOrCreate(req.RoomID).Submit(c.Request.Context(), &ev)
	if err != nil {
		status := http.StatusConflict
		label := "conflict"
		if errors.Is(err, types.ErrSaturated) {
			label = "saturated"
		}
		metrics.EventsTotal.WithLabelValues(string(ev.Type), label).Inc()
		c.JSON(status, gin.H{"error": types.ClientText(err)})
		return
	}

	metrics.EventsTotal.WithLabelValues(string(ev.Type), "accepted").Inc()
	if h.broadcaster != nil {
		h.broadcaster.Publish(req.RoomID, types.NewEventMessage(stored))
	}

	c.JSON(http.StatusCreated, gin.H{
		"roomId": req.RoomID,
		"event":  stored,
	})
}
