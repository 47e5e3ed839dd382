package rotation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/websocket"

	"github.com/teranos/orbitcam/observability"
	"github.com/teranos/orbitcam/trip"
)

const (
	EventClientJoined  observability.EventType = "rotation.client.joined"
	EventClientDropped observability.EventType = "rotation.client.dropped"
)

// Broadcaster pushes every posted message to all connected WebSocket
// clients as a JSON Envelope. Each client has its own bounded outbox; a
// client whose outbox is full or whose write fails is disconnected.
type Broadcaster struct {
	channel      string
	outboxSize   int
	writeTimeout time.Duration
	observer     observability.Observer
	trips        *trip.Handler

	mu      sync.Mutex
	clients map[uint64]*client
	nextID  uint64
	closed  bool

	sent atomic.Int64
}

type client struct {
	id     uint64
	conn   *websocket.Conn
	outbox chan Envelope
	once   sync.Once
	done   chan struct{}
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

// BroadcasterOption configures a Broadcaster.
type BroadcasterOption func(*Broadcaster)

func WithChannelName(name string) BroadcasterOption {
	return func(b *Broadcaster) { b.channel = name }
}

func WithOutboxSize(n int) BroadcasterOption {
	return func(b *Broadcaster) { b.outboxSize = n }
}

func WithWriteTimeout(d time.Duration) BroadcasterOption {
	return func(b *Broadcaster) { b.writeTimeout = d }
}

func WithBroadcastObserver(obs observability.Observer) BroadcasterOption {
	return func(b *Broadcaster) { b.observer = obs }
}

func NewBroadcaster(opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		channel:      DefaultChannelName,
		outboxSize:   32,
		writeTimeout: 2 * time.Second,
		observer:     observability.NoOpObserver{},
		trips:        trip.NewHandler("rotation.broadcaster", nil),
		clients:      make(map[uint64]*client),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.outboxSize < 1 {
		b.outboxSize = 1
	}
	return b
}

// ServeHTTP upgrades the request to a WebSocket and keeps it until the
// client hangs up or the broadcaster closes. Any origin is accepted.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	websocket.Server{Handler: b.serveConn}.ServeHTTP(w, r)
}

func (b *Broadcaster) serveConn(conn *websocket.Conn) {
	c, ok := b.register(conn)
	if !ok {
		conn.Close()
		return
	}
	defer b.drop(c, "")

	// Inbound frames are ignored; reading only detects the hang-up.
	go func() {
		io.Copy(io.Discard, conn)
		c.stop()
	}()

	for {
		select {
		case env := <-c.outbox:
			if b.writeTimeout > 0 {
				conn.SetWriteDeadline(time.Now().Add(b.writeTimeout))
			}
			if err := websocket.JSON.Send(conn, env); err != nil {
				b.drop(c, fmt.Sprintf("write failed: %v", err))
				return
			}
		case <-c.done:
			return
		}
	}
}

func (b *Broadcaster) register(conn *websocket.Conn) (*client, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, false
	}
	b.nextID++
	c := &client{
		id:     b.nextID,
		conn:   conn,
		outbox: make(chan Envelope, b.outboxSize),
		done:   make(chan struct{}),
	}
	b.clients[c.id] = c

	b.observer.OnEvent(context.Background(), observability.Event{
		Type:      EventClientJoined,
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "rotation.Broadcaster",
		Data:      map[string]any{"client": c.id, "remote": conn.Request().RemoteAddr},
	})
	return c, true
}

// drop removes a client. A non-empty reason records a transport stumble.
func (b *Broadcaster) drop(c *client, reason string) {
	b.mu.Lock()
	_, present := b.clients[c.id]
	delete(b.clients, c.id)
	b.mu.Unlock()

	c.stop()
	if !present {
		return
	}
	c.conn.Close()

	level := observability.LevelInfo
	data := map[string]any{"client": c.id}
	if reason != "" {
		t := trip.NewStumble(trip.Transport, reason, trip.Context{"client": c.id, "channel": b.channel})
		b.trips.Record(t)
		level = observability.LevelWarning
		data = t.Fields()
	}
	b.observer.OnEvent(context.Background(), observability.Event{
		Type:      EventClientDropped,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "rotation.Broadcaster",
		Data:      data,
	})
}

// PostMessage queues the message for every client without waiting on any.
func (b *Broadcaster) PostMessage(msg Message) {
	env := Wrap(b.channel, msg)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	var full []*client
	for _, c := range b.clients {
		select {
		case c.outbox <- env:
		default:
			full = append(full, c)
		}
	}
	b.mu.Unlock()

	b.sent.Add(1)
	for _, c := range full {
		b.drop(c, "outbox full")
	}
}

// Clients returns the number of connected clients.
func (b *Broadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Sent returns how many messages were posted while open.
func (b *Broadcaster) Sent() int64 { return b.sent.Load() }

// Trips exposes the transport failures seen so far.
func (b *Broadcaster) Trips() *trip.Handler { return b.trips }

// Close disconnects every client and refuses new ones.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	clients := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.Unlock()

	for _, c := range clients {
		b.drop(c, "")
	}
}
