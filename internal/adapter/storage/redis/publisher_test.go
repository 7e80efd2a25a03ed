package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"live-bingo-engine/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventPublisher_PublishToRound(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	pub := NewEventPublisher(client)
	ctx := context.Background()
	roundID := uuid.New()

	sub := client.Subscribe(ctx, RoundChannel(roundID))
	t.Cleanup(func() { _ = sub.Close() })
	// Wait for the subscription before publishing.
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	event := domain.NumberCalledEvent{Number: 42, DrawnCount: 3, Total: 75}
	require.NoError(t, pub.PublishToRound(ctx, roundID, event))

	select {
	case msg := <-sub.Channel():
		var envelope struct {
			Type    string          `json:"type"`
			RoundID uuid.UUID       `json:"round_id"`
			Data    json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &envelope))
		assert.Equal(t, "numberCalled", envelope.Type)
		assert.Equal(t, roundID, envelope.RoundID)

		var called domain.NumberCalledEvent
		require.NoError(t, json.Unmarshal(envelope.Data, &called))
		assert.Equal(t, 42, called.Number)
		assert.Equal(t, 3, called.DrawnCount)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestEventPublisher_NoSubscribers(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	pub := NewEventPublisher(client)

	// Publishing into the void is not an error.
	err := pub.PublishToRound(context.Background(), uuid.New(), domain.RoundLockedEvent{CountdownSeconds: 30})
	assert.NoError(t, err)
}

func TestRoundChannel_Format(t *testing.T) {
	roundID := uuid.New()
	assert.Equal(t, "round:"+roundID.String()+":events", RoundChannel(roundID))
}
