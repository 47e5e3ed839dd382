package rotation

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/teranos/orbitcam/observability"
)

func dialBroadcaster(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := websocket.Dial(url, "", "http://localhost/")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, b *Broadcaster, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return b.Clients() == n }, 2*time.Second, 5*time.Millisecond)
}

func TestBroadcaster_DeliversEnvelope(t *testing.T) {
	rec := &observability.Recorder{}
	b := NewBroadcaster(WithBroadcastObserver(rec))
	srv := httptest.NewServer(b)
	defer srv.Close()
	defer b.Close()

	conn := dialBroadcaster(t, srv)
	waitForClients(t, b, 1)

	b.PostMessage(Message{Theta: 10, Phi: 95})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env Envelope
	require.NoError(t, websocket.JSON.Receive(conn, &env))

	assert.Equal(t, DefaultChannelName, env.Channel)
	assert.Equal(t, Message{Theta: 10, Phi: 95}, env.Data)
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, int64(1), b.Sent())
	assert.Equal(t, 1, rec.Count(EventClientJoined))
}

func TestBroadcaster_FansOutToAllClients(t *testing.T) {
	b := NewBroadcaster(WithChannelName("Orbit"))
	srv := httptest.NewServer(b)
	defer srv.Close()
	defer b.Close()

	first := dialBroadcaster(t, srv)
	second := dialBroadcaster(t, srv)
	waitForClients(t, b, 2)

	b.PostMessage(Message{Theta: -20, Phi: 5})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var env Envelope
		require.NoError(t, websocket.JSON.Receive(conn, &env))
		assert.Equal(t, "Orbit", env.Channel)
		assert.Equal(t, -20.0, env.Data.Theta)
	}
}

func TestBroadcaster_ClientHangUpIsRemoved(t *testing.T) {
	rec := &observability.Recorder{}
	b := NewBroadcaster(WithBroadcastObserver(rec))
	srv := httptest.NewServer(b)
	defer srv.Close()
	defer b.Close()

	conn := dialBroadcaster(t, srv)
	waitForClients(t, b, 1)

	conn.Close()
	waitForClients(t, b, 0)

	assert.NotPanics(t, func() { b.PostMessage(Message{Theta: 1}) })
	assert.Eventually(t, func() bool { return rec.Count(EventClientDropped) == 1 }, time.Second, 5*time.Millisecond)
}

func TestBroadcaster_NoClientsStillCounts(t *testing.T) {
	b := NewBroadcaster()
	b.PostMessage(Message{Theta: 1})
	assert.Equal(t, int64(1), b.Sent())
	assert.False(t, b.Trips().HasTrips())
}

func TestBroadcaster_CloseRefusesNewClients(t *testing.T) {
	b := NewBroadcaster()
	srv := httptest.NewServer(b)
	defer srv.Close()

	conn := dialBroadcaster(t, srv)
	waitForClients(t, b, 1)

	b.Close()
	waitForClients(t, b, 0)

	b.PostMessage(Message{Theta: 1})
	assert.Equal(t, int64(0), b.Sent())

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var env Envelope
	assert.Error(t, websocket.JSON.Receive(conn, &env))
}
