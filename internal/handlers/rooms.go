package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatroom-service/internal/models"
	"chatroom-service/internal/services"
)

type createRoomRequest struct {
	UserID          string `json:"userId" binding:"required"`
	RoomName        string `json:"roomName"`
	RoomDescription string `json:"roomDescription"`
	RoomType        string `json:"roomType"`
	RoomPassword    string `json:"roomPassword"`
}

type enterRoomRequest struct {
	RoomID   string `json:"roomId" binding:"required"`
	RoomType string `json:"roomType"`
	UserID   string `json:"userId" binding:"required"`
	Password string `json:"password"`
}

// CreateRoom handles POST /api/create-room.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := bindPayload(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.authorizeCaller(c, req.UserID) {
		return
	}

	roomID, err := h.rooms.CreateRoom(c.Request.Context(), services.CreateRoomInput{
		CallerID:    req.UserID,
		Name:        req.RoomName,
		Description: req.RoomDescription,
		Type:        models.RoomType(req.RoomType),
		Password:    req.RoomPassword,
	})
	if err != nil {
		h.writeError(c, "create_room", roomID, err)
		return
	}

	h.emitAudit(c, "INFO", "Room created", roomID)
	h.emitEvent(c, "room_created", gin.H{"room_id": roomID, "owner_id": req.UserID, "room_type": req.RoomType})
	c.JSON(http.StatusCreated, gin.H{"roomId": roomID})
}

// DeleteRoom handles DELETE /api/delete-room/:userId/:roomId.
func (h *Handler) DeleteRoom(c *gin.Context) {
	userID, roomID := c.Param("userId"), c.Param("roomId")
	if !h.authorizeCaller(c, userID) {
		return
	}

	if err := h.rooms.DeleteRoom(c.Request.Context(), userID, roomID); err != nil {
		h.writeError(c, "delete_room", roomID, err)
		return
	}
	if h.hub != nil {
		h.hub.BroadcastRoomDeleted(roomID)
	}

	h.emitAudit(c, "INFO", "Room deleted", roomID)
	h.emitEvent(c, "room_deleted", gin.H{"room_id": roomID, "owner_id": userID})
	c.JSON(http.StatusOK, gin.H{"message": "Room deleted"})
}

// EnterRoom handles POST /api/enter-room.
func (h *Handler) EnterRoom(c *gin.Context) {
	var req enterRoomRequest
	if err := bindPayload(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.authorizeCaller(c, req.UserID) {
		return
	}

	roomType := models.RoomType(req.RoomType)
	roomPath, err := h.rooms.JoinRoom(c.Request.Context(), services.JoinRoomInput{
		CallerID: req.UserID,
		RoomID:   req.RoomID,
		RoomType: roomType,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(c, "join_room", req.RoomID, err)
		return
	}

	h.emitAudit(c, "INFO", "Room joined", roomPath)
	h.emitEvent(c, "room_joined", gin.H{"room_id": roomPath, "user_id": req.UserID})
	if roomType == models.RoomTypePrivate {
		c.JSON(http.StatusOK, gin.H{"roomPath": roomPath})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Entered Room Successfully"})
}

// ExitRoom handles DELETE /api/exit-room/:userId/:roomId.
func (h *Handler) ExitRoom(c *gin.Context) {
	userID, roomID := c.Param("userId"), c.Param("roomId")
	if !h.authorizeCaller(c, userID) {
		return
	}

	if err := h.rooms.LeaveRoom(c.Request.Context(), userID, roomID); err != nil {
		h.writeError(c, "leave_room", roomID, err)
		return
	}

	h.emitAudit(c, "INFO", "Room left", roomID)
	h.emitEvent(c, "room_left", gin.H{"room_id": roomID, "user_id": userID})
	c.JSON(http.StatusOK, gin.H{"message": "User successfully left the room"})
}

// GetUserRooms handles GET /api/get-user-rooms/:userId. An unknown user is
// reported in the body with status 200.
func (h *Handler) GetUserRooms(c *gin.Context) {
	userID := c.Param("userId")
	if !h.authorizeCaller(c, userID) {
		return
	}

	rooms, err := h.membership.ListUserRooms(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			c.JSON(http.StatusOK, gin.H{"error": "No data found!"})
			return
		}
		h.writeError(c, "list_user_rooms", "", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"myRooms": rooms})
}
