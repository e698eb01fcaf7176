package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"chatroom-service/internal/auth"
	"chatroom-service/internal/models"
)

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub(nil)

	hub.AddClient("room-1", nil, ConnInfo{})
	require.Equal(t, 1, hub.ClientCount("room-1"))

	hub.RemoveClient("room-1", nil)
	require.Equal(t, 0, hub.ClientCount("room-1"))
	require.Empty(t, hub.rooms)
}

func TestHubBroadcastWithoutClients(t *testing.T) {
	hub := NewHub(nil)
	hub.AddClient("room-1", nil, ConnInfo{})
	hub.BroadcastRoomMessage("room-1", models.Message{ID: "m1", RoomID: "room-1"})
	hub.BroadcastRoomDeleted("room-1")
	require.Equal(t, 0, hub.ClientCount("room-1"))
}

type stubVerifier map[string]string

func (s stubVerifier) Verify(_ context.Context, token string) (auth.Identity, error) {
	if id, ok := s[token]; ok {
		return auth.Identity{UserID: id}, nil
	}
	return auth.Identity{}, auth.ErrInvalidToken
}

type stubAccess map[string]bool

func (s stubAccess) CanAccess(_ context.Context, userID, roomID string) (bool, error) {
	return s[userID+"/"+roomID], nil
}

func setupWSServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler := NewRoomWebSocketHandler(hub,
		stubVerifier{"alice-token": "alice", "bob-token": "bob"},
		stubAccess{"alice/room-1": true})
	r := gin.New()
	r.GET("/ws/rooms/:roomId", handler.Handle)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestRoomWebSocketReceivesBroadcast(t *testing.T) {
	hub := NewHub(nil)
	srv := setupWSServer(t, hub)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/rooms/room-1?token=alice-token"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount("room-1") == 1 }, time.Second, 10*time.Millisecond)

	hub.BroadcastRoomMessage("room-1", models.Message{ID: "m1", RoomID: "room-1", Body: "hello"})

	var event models.RoomEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, "message", event.Type)
	require.NotNil(t, event.Message)
	require.Equal(t, "hello", event.Message.Body)
}

func TestRoomWebSocketRejectsHandshake(t *testing.T) {
	hub := NewHub(nil)
	srv := setupWSServer(t, hub)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/rooms/room-1"), nil)
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(srv, "/ws/rooms/room-1?token=nope"), nil)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	header := http.Header{}
	header.Set("authtoken", "bob-token")
	_, resp, err = websocket.DefaultDialer.Dial(wsURL(srv, "/ws/rooms/room-1"), header)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, 0, hub.ClientCount("room-1"))
}
