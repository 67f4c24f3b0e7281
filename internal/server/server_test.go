package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/fairpoker/internal/game"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func startFeed(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer("127.0.0.1:0", testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Stop()
		ts.Close()
	})
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func joined(gameID uint64, seat int) game.PlayerJoinedEvent {
	return game.PlayerJoinedEvent{
		Header:  game.Header{GameID: gameID, At: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		Seat:    seat,
		Address: "alice",
		BuyIn:   100,
	}
}

func TestServerHealth(t *testing.T) {
	srv := NewServer("127.0.0.1:0", testLogger())
	defer func() { _ = srv.Stop() }()

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestServerRejectsBadGameFilter(t *testing.T) {
	srv := NewServer("127.0.0.1:0", testLogger())
	defer func() { _ = srv.Stop() }()

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events?game=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServerBroadcastsEnvelope(t *testing.T) {
	srv, ts := startFeed(t)
	conn := dial(t, ts, "")
	require.Eventually(t, func() bool { return srv.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	srv.OnEvent(joined(3, 1))

	env := readEnvelope(t, conn)
	assert.Equal(t, game.EventTypePlayerJoined, env.Type)
	assert.Equal(t, uint64(3), env.GameID)
	assert.Equal(t, 2026, env.Time.Year())

	id, err := uuid.Parse(env.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	var data struct {
		Seat    int    `json:"seat"`
		Address string `json:"address"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 1, data.Seat)
	assert.Equal(t, "alice", data.Address)
}

func TestServerFiltersByGame(t *testing.T) {
	srv, ts := startFeed(t)
	all := dial(t, ts, "")
	one := dial(t, ts, "?game=5")
	require.Eventually(t, func() bool { return srv.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	srv.OnEvent(joined(3, 0))
	srv.OnEvent(joined(5, 2))

	assert.Equal(t, uint64(3), readEnvelope(t, all).GameID)
	assert.Equal(t, uint64(5), readEnvelope(t, all).GameID)
	assert.Equal(t, uint64(5), readEnvelope(t, one).GameID)
}

func TestServerEnvelopeIDsAreOrdered(t *testing.T) {
	srv, ts := startFeed(t)
	conn := dial(t, ts, "")
	require.Eventually(t, func() bool { return srv.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	for seat := 0; seat < 5; seat++ {
		srv.OnEvent(joined(1, seat))
	}
	var last string
	for seat := 0; seat < 5; seat++ {
		env := readEnvelope(t, conn)
		assert.Greater(t, env.ID, last)
		last = env.ID
	}
}

func TestServerUnregistersOnDisconnect(t *testing.T) {
	srv, ts := startFeed(t)
	conn := dial(t, ts, "")
	require.Eventually(t, func() bool { return srv.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return srv.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServerStopClosesObservers(t *testing.T) {
	srv, ts := startFeed(t)
	conn := dial(t, ts, "")
	require.Eventually(t, func() bool { return srv.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, srv.Stop())
	assert.Zero(t, srv.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestServerSubscribesToEventBus(t *testing.T) {
	srv, ts := startFeed(t)
	conn := dial(t, ts, "")
	require.Eventually(t, func() bool { return srv.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	bus := game.NewEventBus()
	bus.Subscribe(srv)
	bus.Publish(game.HandVoidedEvent{Header: game.Header{GameID: 9, At: time.Now()}})

	env := readEnvelope(t, conn)
	assert.Equal(t, game.EventTypeHandVoided, env.Type)
	assert.Equal(t, uint64(9), env.GameID)
}

func TestFeedURL(t *testing.T) {
	tests := []struct {
		addr string
		game uint64
		want string
	}{
		{"localhost:8080", 0, "ws://localhost:8080/events"},
		{"http://feed.example:9000", 3, "ws://feed.example:9000/events?game=3"},
		{"https://feed.example", 0, "wss://feed.example/events"},
		{"ws://127.0.0.1:1/anything", 0, "ws://127.0.0.1:1/events"},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			got, err := FeedURL(tt.addr, tt.game)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := FeedURL("ftp://feed.example", 0)
	require.Error(t, err)
}

func TestEnvelopeEventDecodes(t *testing.T) {
	ev := game.HandClosedEvent{
		Header:     game.Header{GameID: 4, At: time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)},
		HandNumber: 12,
		Pot:        40,
		Awards:     []game.Award{{Seat: 1, Amount: 40}},
	}
	env, err := NewEnvelope(ev)
	require.NoError(t, err)

	decoded, err := env.Event()
	require.NoError(t, err)
	assert.Equal(t, ev, decoded)

	_, err = Envelope{Type: "mystery"}.Event()
	require.Error(t, err)
}

func TestSubscribeDeliversUntilStopped(t *testing.T) {
	srv, ts := startFeed(t)
	feedURL, err := FeedURL(ts.URL, 7)
	require.NoError(t, err)

	got := make(chan Envelope, 4)
	done := make(chan error, 1)
	go func() {
		done <- Subscribe(context.Background(), feedURL, func(env Envelope) { got <- env })
	}()

	require.Eventually(t, func() bool { return srv.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	srv.OnEvent(joined(8, 0))
	srv.OnEvent(joined(7, 2))

	select {
	case env := <-got:
		assert.Equal(t, uint64(7), env.GameID)
		ev, err := env.Event()
		require.NoError(t, err)
		assert.Equal(t, 2, ev.(game.PlayerJoinedEvent).Seat)
	case <-time.After(2 * time.Second):
		t.Fatal("no envelope delivered")
	}

	require.NoError(t, srv.Stop())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}

func TestSubscribeStopsOnCancel(t *testing.T) {
	srv, ts := startFeed(t)
	feedURL, err := FeedURL(ts.URL, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Subscribe(ctx, feedURL, func(Envelope) {}) }()

	require.Eventually(t, func() bool { return srv.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}
