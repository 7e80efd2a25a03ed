package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"live-bingo-engine/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// RoundChannel returns the pub/sub channel name carrying a round's
// events. Gateway processes subscribe to it to fan events out to the
// round's connected players.
func RoundChannel(roundID uuid.UUID) string {
	return fmt.Sprintf("round:%s:events", roundID)
}

// eventEnvelope frames a round event on the wire with its type, so
// subscribers can dispatch without probing the payload shape.
type eventEnvelope struct {
	Type    string          `json:"type"`
	RoundID uuid.UUID       `json:"round_id"`
	Data    json.RawMessage `json:"data"`
	At      time.Time       `json:"at"`
}

// EventPublisher implements ports.EventPublisher over Redis pub/sub.
// Delivery is best-effort: a publish with no subscribers is not an
// error, and the engine never blocks on delivery.
type EventPublisher struct {
	client *goredis.Client
}

// NewEventPublisher creates a Redis-backed round event publisher.
func NewEventPublisher(client *goredis.Client) *EventPublisher {
	return &EventPublisher{client: client}
}

// PublishToRound broadcasts an event on the round's channel.
func (p *EventPublisher) PublishToRound(ctx context.Context, roundID uuid.UUID, event domain.RoundEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal round event: %w", err)
	}

	envelope, err := json.Marshal(eventEnvelope{
		Type:    event.EventType(),
		RoundID: roundID,
		Data:    data,
		At:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	if err := p.client.Publish(ctx, RoundChannel(roundID), envelope).Err(); err != nil {
		return fmt.Errorf("publish round event: %w", err)
	}
	return nil
}
