package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	keys   []string
	events []any
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, event any) error {
	p.keys = append(p.keys, routingKey)
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestAuditEmitterPublishesEnvelope(t *testing.T) {
	pub := &recordingPublisher{}
	e := NewAuditEmitter(pub, "audit.chatrooms", "chatroom-service", "test")

	e.Emit(context.Background(), "INFO", "Room created", "req-1", "alice", "room-1")

	require.Equal(t, []string{"audit.chatrooms"}, pub.keys)
	env, ok := pub.events[0].(AuditEnvelope)
	require.True(t, ok)
	require.Equal(t, "audit_log", env.EventType)
	require.Equal(t, "req-1", env.RequestID)
	require.Equal(t, "alice", env.UserID)
	require.Equal(t, "room-1", env.Payload.RoomID)
}

func TestAuditEmitterNilSafe(t *testing.T) {
	var e *AuditEmitter
	e.Emit(context.Background(), "INFO", "noop", "", "", "")

	pub := &recordingPublisher{err: assert.AnError}
	NewAuditEmitter(pub, "k", "s", "e").Emit(context.Background(), "ERROR", "failing", "", "", "")
	require.Len(t, pub.events, 1)
}

func TestEventEmitterRoutingKey(t *testing.T) {
	pub := &recordingPublisher{}
	NewEventEmitter(pub).Emit(context.Background(), "message_sent", "req-1", "", map[string]string{"roomId": "r1"})

	require.Equal(t, []string{"room_events.message_sent"}, pub.keys)
	env := pub.events[0].(EventEnvelope)
	require.Equal(t, "message_sent", env.EventName)
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), "svc", "test", "")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
