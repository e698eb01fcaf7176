package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"chatroom-service/internal/auth"
	"chatroom-service/internal/middleware"
	"chatroom-service/internal/observability"
)

// AccessChecker decides whether a user may follow a room's live log.
type AccessChecker interface {
	CanAccess(ctx context.Context, userID, roomID string) (bool, error)
}

// RoomWebSocketHandler streams room events to subscribed clients.
type RoomWebSocketHandler struct {
	hub      *Hub
	verifier auth.Verifier
	access   AccessChecker
}

// NewRoomWebSocketHandler constructs a RoomWebSocketHandler.
func NewRoomWebSocketHandler(hub *Hub, verifier auth.Verifier, access AccessChecker) *RoomWebSocketHandler {
	return &RoomWebSocketHandler{hub: hub, verifier: verifier, access: access}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and subscribes it to the room. Browsers
// cannot set headers on websocket requests, so the token may also be passed
// as the token query parameter.
func (h *RoomWebSocketHandler) Handle(c *gin.Context) {
	roomID := strings.TrimSpace(c.Param("roomId"))
	if roomID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	ctx, span := otel.Tracer("chatroom-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()

	token := c.GetHeader(middleware.AuthHeader)
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}
	identity, err := h.verifier.Verify(ctx, token)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid token"})
		return
	}

	allowed, err := h.access.CanAccess(ctx, identity.UserID, roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for room"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := ConnInfo{
		ConnID:      uuid.NewString(),
		UserID:      identity.UserID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddClient(roomID, conn, info)
	observability.IncWSActive("room")
	h.hub.publishWSEvent("ws_connect", roomID, info, "")

	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(roomID, conn)
			observability.DecWSActive("room")
			h.hub.publishWSEvent("ws_disconnect", roomID, info, closeReason)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.hub.publishWSEvent("ws_error", roomID, info, closeReason)
				}
				return
			}
		}
	}()
}
