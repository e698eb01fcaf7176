package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"chatroom-service/internal/services"
)

type createUserRequest struct {
	UserID    string `json:"userId" binding:"required"`
	UserEmail string `json:"userEmail" binding:"required"`
	UserName  string `json:"userName"`
}

// CreateUser handles POST /api/create-user. Users are looked up by email and
// only inserted when none exists.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := bindPayload(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.users.FindOrCreate(c.Request.Context(), req.UserID, req.UserEmail, req.UserName)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Str("user_id", req.UserID).Msg("create user failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !created {
		c.JSON(http.StatusOK, gin.H{"message": "User Found!"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User Created Successfully!"})
}
