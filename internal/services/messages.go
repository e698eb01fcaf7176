package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"chatroom-service/internal/models"
	"chatroom-service/internal/observability"
	"chatroom-service/internal/repositories"
)

// SendMessageInput carries the fields of a message send request.
type SendMessageInput struct {
	RoomID     string
	SenderID   string
	SenderName string
	Body       string
}

// MessageRelay appends messages to room logs.
type MessageRelay struct {
	realtime repositories.RealtimeRepository
	newID    func() string
	now      func() time.Time
}

// NewMessageRelay constructs a MessageRelay.
func NewMessageRelay(realtime repositories.RealtimeRepository) *MessageRelay {
	return &MessageRelay{
		realtime: realtime,
		newID:    uuid.NewString,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SendMessage stores a new message under a fresh id. Neither the room nor the
// sender is checked; identical calls produce distinct messages.
func (r *MessageRelay) SendMessage(ctx context.Context, in SendMessageInput) (msg models.Message, err error) {
	ctx, span := tracer.Start(ctx, "messages.send", trace.WithAttributes(attribute.String("room.id", in.RoomID)))
	defer span.End()
	defer func() { observability.ObserveRoomOp("send_message", err) }()

	if strings.TrimSpace(in.RoomID) == "" {
		return models.Message{}, &ValidationError{Field: "chatId", Reason: "required"}
	}

	msg = models.Message{
		ID:         r.newID(),
		RoomID:     in.RoomID,
		SenderID:   in.SenderID,
		SenderName: in.SenderName,
		Body:       in.Body,
		CreatedAt:  r.now(),
	}
	if err := r.realtime.AppendMessage(ctx, msg); err != nil {
		return models.Message{}, storeError("append message", err)
	}
	return msg, nil
}

// ListMessages returns the room's log ordered by creation time.
func (r *MessageRelay) ListMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, &ValidationError{Field: "roomId", Reason: "required"}
	}
	msgs, err := r.realtime.ListMessages(ctx, roomID)
	if err != nil {
		return nil, storeError("list messages", err)
	}
	return msgs, nil
}
