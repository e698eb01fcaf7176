package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatroom-service/internal/services"
)

type sendMessageRequest struct {
	ChatID     string `json:"chatId" binding:"required"`
	Message    string `json:"message"`
	SenderID   string `json:"senderId" binding:"required"`
	SenderName string `json:"senderName"`
}

// SendMessage handles POST /api/send-message and fans the stored message out
// to websocket subscribers of the room.
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := bindPayload(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.authorizeCaller(c, req.SenderID) {
		return
	}

	msg, err := h.messages.SendMessage(c.Request.Context(), services.SendMessageInput{
		RoomID:     req.ChatID,
		SenderID:   req.SenderID,
		SenderName: req.SenderName,
		Body:       req.Message,
	})
	if err != nil {
		h.writeError(c, "send_message", req.ChatID, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastRoomMessage(msg.RoomID, msg)
	}
	h.emitAudit(c, "INFO", "Message sent", msg.RoomID)
	h.emitEvent(c, "message_sent", gin.H{"room_id": msg.RoomID, "message_id": msg.ID, "sender_id": msg.SenderID})
	c.JSON(http.StatusCreated, gin.H{"message": "Message successfully sent!", "messageId": msg.ID})
}

// GetRoomMessages handles GET /api/get-room-messages/:roomId. Only callers
// with access to the room may read its log.
func (h *Handler) GetRoomMessages(c *gin.Context) {
	roomID := c.Param("roomId")
	userID := verifiedUserID(c)

	allowed, err := h.membership.CanAccess(c.Request.Context(), userID, roomID)
	if err != nil {
		h.writeError(c, "list_messages", roomID, err)
		return
	}
	if !allowed {
		h.emitAudit(c, "ERROR", "not allowed", roomID)
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	msgs, err := h.messages.ListMessages(c.Request.Context(), roomID)
	if err != nil {
		h.writeError(c, "list_messages", roomID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
