package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// EventEnvelope wraps room events published to the broker.
type EventEnvelope struct {
	EventType  string      `json:"event_type"`
	EventName  string      `json:"event_name"`
	OccurredAt string      `json:"occurred_at"`
	RequestID  string      `json:"request_id,omitempty"`
	TraceID    string      `json:"trace_id,omitempty"`
	Payload    interface{} `json:"payload"`
}

// EventEmitter publishes room lifecycle and message events under
// room_events.<name>.
type EventEmitter struct {
	publisher Publisher
}

func NewEventEmitter(publisher Publisher) *EventEmitter {
	return &EventEmitter{publisher: publisher}
}

func (e *EventEmitter) Emit(ctx context.Context, name, requestID, traceID string, payload interface{}) {
	if e == nil || e.publisher == nil {
		return
	}
	envelope := EventEnvelope{
		EventType:  "room_events",
		EventName:  name,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		RequestID:  requestID,
		TraceID:    traceID,
		Payload:    payload,
	}
	if err := e.publisher.Publish(ctx, "room_events."+name, envelope); err != nil {
		log.Warn().Err(err).Str("event", name).Msg("room event publish failed")
	}
}
