package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/store/memory"
)

func dial(t *testing.T) (*memory.SignalBus, *Hub, *websocket.Conn) {
	t.Helper()
	bus := memory.NewSignalBus()
	hub := NewHub(bus, Config{Mode: "full"}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)
	return bus, hub, conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestHub_HelloThenRelay(t *testing.T) {
	bus, _, conn := dial(t)

	hello := readEnvelope(t, conn)
	assert.Equal(t, "hello", hello.Channel)
	var info map[string]any
	require.NoError(t, json.Unmarshal(hello.Data, &info))
	assert.Equal(t, "full", info["mode"])

	require.NoError(t, bus.Publish(context.Background(), domain.ChannelEvents, []byte(`{"seq":7}`)))
	env := readEnvelope(t, conn)
	assert.Equal(t, domain.ChannelEvents, env.Channel)
	assert.JSONEq(t, `{"seq":7}`, string(env.Data))
}

func TestHub_Unsubscribe(t *testing.T) {
	bus, _, conn := dial(t)
	readEnvelope(t, conn)

	require.NoError(t, conn.WriteJSON(subscribeMsg{Action: "unsubscribe", Channels: []string{domain.ChannelBets}}))
	// The read pump applies it asynchronously.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, bus.Publish(context.Background(), domain.ChannelBets, []byte(`{"bet":1}`)))
	require.NoError(t, bus.Publish(context.Background(), domain.ChannelTicks, []byte(`{"year":3}`)))

	env := readEnvelope(t, conn)
	assert.Equal(t, domain.ChannelTicks, env.Channel)
}

func TestAsJSON_QuotesPlainText(t *testing.T) {
	assert.Equal(t, `"hi there"`, string(asJSON([]byte("hi there"))))
	assert.Equal(t, `[1,2]`, string(asJSON([]byte("[1,2]"))))
}
