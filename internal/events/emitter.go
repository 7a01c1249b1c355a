package events

import (
	"context"
	"time"

	"proximity-sync/internal/logging"
	"proximity-sync/internal/models"
)

// Routing keys consumed by downstream delivery.
const (
	RouteFriendRequests = "relationship.requests"
	RouteFriendAccepted = "relationship.accepted"
	RouteMessages       = "chat.messages"
)

// Envelope wraps every published event.
type Envelope struct {
	SchemaVersion int    `json:"schema_version"`
	EventType     string `json:"event_type"`
	OccurredAt    string `json:"occurred_at"`
	Service       string `json:"service"`
	Environment   string `json:"environment"`
	Payload       any    `json:"payload"`
}

// Emitter publishes enveloped engine events. A nil Emitter is safe and
// emits nothing.
type Emitter struct {
	publisher   Publisher
	service     string
	environment string
}

// NewEmitter constructs an Emitter.
func NewEmitter(publisher Publisher, service, environment string) *Emitter {
	return &Emitter{publisher: publisher, service: service, environment: environment}
}

// FriendRequested announces a newly created pending request.
func (e *Emitter) FriendRequested(ctx context.Context, request models.FriendRequest) {
	e.emit(ctx, RouteFriendRequests, "friend_request", request)
}

// FriendAccepted announces an accepted request.
func (e *Emitter) FriendAccepted(ctx context.Context, request models.FriendRequest) {
	e.emit(ctx, RouteFriendAccepted, "friend_accepted", request)
}

// MessageSent announces a stored message so push delivery can fan out.
func (e *Emitter) MessageSent(ctx context.Context, message models.Message) {
	e.emit(ctx, RouteMessages, "message_sent", message)
}

func (e *Emitter) emit(ctx context.Context, routingKey, eventType string, payload any) {
	if e == nil || e.publisher == nil {
		return
	}
	envelope := Envelope{
		SchemaVersion: 1,
		EventType:     eventType,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		Payload:       payload,
	}
	if err := e.publisher.Publish(ctx, routingKey, envelope); err != nil {
		logging.L().Warnw("event publish failed", "event_type", eventType, "error", err)
	}
}
