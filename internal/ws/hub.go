package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"chatroom-service/internal/models"
	"chatroom-service/internal/observability"
	"chatroom-service/internal/telemetry"
)

const writeWait = 10 * time.Second

type client struct {
	conn *websocket.Conn
	info ConnInfo
	mu   sync.Mutex
}

func (cl *client) write(payload []byte) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return cl.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub maintains the websocket subscribers of each room.
type Hub struct {
	rooms  map[string]map[*websocket.Conn]*client
	events *telemetry.EventEmitter
	mu     sync.RWMutex
}

// NewHub creates an empty hub. events may be nil.
func NewHub(events *telemetry.EventEmitter) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*websocket.Conn]*client),
		events: events,
	}
}

// AddClient registers a websocket connection to a room.
func (h *Hub) AddClient(roomID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*websocket.Conn]*client)
	}
	h.rooms[roomID][conn] = &client{conn: conn, info: info}
}

// RemoveClient removes a websocket connection.
func (h *Hub) RemoveClient(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// ClientCount returns the number of subscribers of a room.
func (h *Hub) ClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// BroadcastRoomMessage sends a message to all subscribers of a room.
func (h *Hub) BroadcastRoomMessage(roomID string, msg models.Message) {
	h.broadcast(roomID, models.RoomEvent{Type: "message", Message: &msg, RoomID: roomID})
}

// BroadcastRoomDeleted tells subscribers the room is gone and drops them.
func (h *Hub) BroadcastRoomDeleted(roomID string) {
	h.broadcast(roomID, models.RoomEvent{Type: "room_deleted", RoomID: roomID})

	h.mu.Lock()
	conns := h.rooms[roomID]
	delete(h.rooms, roomID)
	h.mu.Unlock()
	for conn := range conns {
		if conn != nil {
			conn.Close()
		}
	}
}

func (h *Hub) broadcast(roomID string, event models.RoomEvent) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.rooms[roomID]))
	for _, cl := range h.rooms[roomID] {
		if cl.conn != nil {
			clients = append(clients, cl)
		}
	}
	h.mu.RUnlock()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("encode room event")
		return
	}
	for _, cl := range clients {
		if err := cl.write(payload); err != nil {
			log.Warn().Err(err).Str("room_id", roomID).Str("conn_id", cl.info.ConnID).Msg("websocket write error")
			cl.conn.Close()
			h.RemoveClient(roomID, cl.conn)
			h.publishWSEvent("ws_error", roomID, cl.info, err.Error())
		}
	}
}

func (h *Hub) publishWSEvent(event, roomID string, info ConnInfo, reason string) {
	observability.IncWSEvent("room", event)
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        "room",
			"resource_id": roomID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
	h.events.Emit(context.Background(), event, info.RequestID, info.TraceID, payload)
}
