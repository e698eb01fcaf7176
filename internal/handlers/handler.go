package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog/log"

	"chatroom-service/internal/services"
	"chatroom-service/internal/telemetry"
	"chatroom-service/internal/ws"
)

// Options tune request handling.
type Options struct {
	// EnforceCallerIdentity rejects requests whose userId differs from the
	// verified token subject.
	EnforceCallerIdentity bool
}

// Handler serves the room, membership, message and user endpoints.
type Handler struct {
	rooms      *services.RoomCoordinator
	membership *services.MembershipQuery
	messages   *services.MessageRelay
	users      *services.UserDirectory
	hub        *ws.Hub
	audit      *telemetry.AuditEmitter
	events     *telemetry.EventEmitter
	opts       Options
}

// NewHandler constructs a Handler. hub, audit and events may be nil.
func NewHandler(
	rooms *services.RoomCoordinator,
	membership *services.MembershipQuery,
	messages *services.MessageRelay,
	users *services.UserDirectory,
	hub *ws.Hub,
	audit *telemetry.AuditEmitter,
	events *telemetry.EventEmitter,
	opts Options,
) *Handler {
	return &Handler{
		rooms:      rooms,
		membership: membership,
		messages:   messages,
		users:      users,
		hub:        hub,
		audit:      audit,
		events:     events,
		opts:       opts,
	}
}

// bindPayload decodes a JSON body that is either flat or wrapped in a
// {"data": {...}} envelope, then runs the binding validators.
func bindPayload(c *gin.Context, obj any) error {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return err
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 && envelope.Data[0] == '{' {
		body = envelope.Data
	}
	return binding.JSON.BindBody(body, obj)
}

// authorizeCaller reports whether the request may act as userID. It writes
// the 403 response itself.
func (h *Handler) authorizeCaller(c *gin.Context, userID string) bool {
	if !h.opts.EnforceCallerIdentity {
		return true
	}
	if verified := verifiedUserID(c); verified != "" && verified == userID {
		return true
	}
	h.emitAudit(c, "ERROR", "caller identity mismatch", "")
	c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
	return false
}

// writeError maps workflow errors to responses. Not-found and forbidden
// outcomes keep a readable reason; infrastructure failures stay opaque.
func (h *Handler) writeError(c *gin.Context, op, roomID string, err error) {
	var partial *services.PartialConsistencyError
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, services.ErrRoomNotFound):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Room does not exist"})
	case errors.Is(err, services.ErrWrongPassword):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Wrong password"})
	case errors.Is(err, services.ErrNotRoomOwner):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Not the room owner"})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found"})
	case errors.As(err, &partial):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "partial failure",
			"roomId":    partial.RoomID,
			"completed": partial.Completed,
			"failed":    partial.Failed,
		})
	default:
		log.Error().Err(err).Str("op", op).Str("room_id", roomID).Str("request_id", requestIDFromContext(c)).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
	h.emitAudit(c, "ERROR", op+" failed", roomID)
}

func (h *Handler) emitAudit(c *gin.Context, level, text, roomID string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), verifiedUserID(c), roomID)
}

func (h *Handler) emitEvent(c *gin.Context, name string, payload any) {
	h.events.Emit(c.Request.Context(), name, requestIDFromContext(c), traceIDFromContext(c), payload)
}
