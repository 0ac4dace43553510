package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/divinefavor/internal/domain"
)

func TestSignalBus_PatternSubscribers(t *testing.T) {
	bus := NewSignalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	world, err := bus.Subscribe(ctx, "world:*")
	require.NoError(t, err)
	bets, err := bus.Subscribe(ctx, domain.ChannelBets)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, domain.ChannelEvents, []byte("e1")))
	require.NoError(t, bus.Publish(ctx, domain.ChannelBets, []byte("b1")))

	assert.Equal(t, []byte("e1"), <-world)
	assert.Equal(t, []byte("b1"), <-bets)
	select {
	case msg := <-world:
		t.Fatalf("unexpected message %q", msg)
	default:
	}
}

func TestSignalBus_SubscriptionClosesOnCancel(t *testing.T) {
	bus := NewSignalBus()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx, domain.ChannelTicks)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
	require.NoError(t, bus.Publish(context.Background(), domain.ChannelTicks, []byte("x")))
}

func TestSignalBus_Streams(t *testing.T) {
	bus := NewSignalBus()
	ctx := context.Background()
	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, bus.StreamAppend(ctx, domain.StreamEvents, []byte(p)))
	}

	all, err := bus.StreamRead(ctx, domain.StreamEvents, "0", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	rest, err := bus.StreamRead(ctx, domain.StreamEvents, all[0].ID, 1)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, []byte("b"), rest[0].Payload)

	none, err := bus.StreamRead(ctx, "stream:other", "", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
