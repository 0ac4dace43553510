package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/service"
)

// testClient connects to DIVINE_TEST_REDIS_ADDR, skipping when unset.
func testClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("DIVINE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("DIVINE_TEST_REDIS_ADDR not set")
	}
	c, err := New(context.Background(), ClientConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLockManager(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	lm := NewLockManager(c)
	key := "test:" + uuid.NewString()

	unlock, err := lm.Acquire(ctx, key, time.Second)
	require.NoError(t, err)
	_, err = lm.Acquire(ctx, key, time.Second)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	unlock()
	unlock()
	again, err := lm.Acquire(ctx, key, time.Second)
	require.NoError(t, err)
	again()
}

func TestRateLimiter(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	rl := NewRateLimiter(c)
	key := "test:" + uuid.NewString()

	for i := range 3 {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, err := rl.Allow(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignalBus_PublishSubscribeAndStream(t *testing.T) {
	c := testClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	bus := NewSignalBus(c)
	channel := "test:" + uuid.NewString()

	ch, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, channel, []byte("hello")))
	select {
	case got := <-ch:
		assert.Equal(t, "hello", string(got))
	case <-ctx.Done():
		t.Fatal("no message received")
	}

	stream := "test:stream:" + uuid.NewString()
	msgs, err := bus.StreamRead(ctx, stream, "0", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	require.NoError(t, bus.StreamAppend(ctx, stream, []byte("a")))
	require.NoError(t, bus.StreamAppend(ctx, stream, []byte("b")))
	msgs, err = bus.StreamRead(ctx, stream, "0", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "b", string(msgs[1].Payload))
}

func TestTickCache(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	tc := NewTickCache(c)

	res := service.TickResult{
		Year: 4, NextYear: 5, Evolved: true,
		Events:     []domain.Event{{Seq: 1}, {Seq: 2}},
		Resolution: service.ResolutionReport{Won: 1, Expired: 2},
		Duration:   1500 * time.Millisecond,
	}
	require.NoError(t, tc.AfterTick(ctx, res))
	got, err := tc.Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, got.NextYear)
	assert.Equal(t, 2, got.Events)
	assert.Equal(t, 2, got.BetsExpiry)
	assert.Equal(t, int64(1500), got.DurationMS)
}
