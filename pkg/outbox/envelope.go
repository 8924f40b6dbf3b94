package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Actor kinds recorded on the envelope.
const (
	ActorUser    = "user"
	ActorGateway = "gateway"
	ActorSystem  = "system"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	Kind   string     `json:"kind"`
	UserID *uuid.UUID `json:"userId,omitempty"`
}

// UserActor builds an ActorRef for a buyer-initiated change.
func UserActor(userID uuid.UUID) *ActorRef {
	return &ActorRef{Kind: ActorUser, UserID: &userID}
}

// SystemActor marks events produced by background jobs.
func SystemActor() *ActorRef {
	return &ActorRef{Kind: ActorSystem}
}

// GatewayActor marks events triggered by payment gateway callbacks.
func GatewayActor() *ActorRef {
	return &ActorRef{Kind: ActorGateway}
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
