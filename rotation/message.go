// Package rotation carries orbit-change notifications out of the watcher.
//
// The payload is always a Message, {"theta": <deg>, "phi": <deg>}. Sinks are
// fire and forget: PostMessage never blocks on a slow consumer and never
// reports an error to the poster.
package rotation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultChannelName is the name the viewer page listens on.
const DefaultChannelName = "RotationChannel"

// Message is one orbit-change notification.
type Message struct {
	Theta float64 `json:"theta"`
	Phi   float64 `json:"phi"`
}

func (m Message) String() string {
	return fmt.Sprintf("Message{Theta: %g, Phi: %g}", m.Theta, m.Phi)
}

// Envelope wraps a Message for out-of-process transports.
type Envelope struct {
	ID      string    `json:"id"`
	Channel string    `json:"channel"`
	SentAt  time.Time `json:"sent_at"`
	Data    Message   `json:"data"`
}

// Wrap stamps a message with a fresh time-ordered id.
func Wrap(channel string, msg Message) Envelope {
	return Envelope{
		ID:      uuid.Must(uuid.NewV7()).String(),
		Channel: channel,
		SentAt:  time.Now().UTC(),
		Data:    msg,
	}
}

// Sink accepts messages.
type Sink interface {
	PostMessage(msg Message)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Message)

func (f SinkFunc) PostMessage(msg Message) { f(msg) }

// Fanout posts every message to each of its sinks in order.
type Fanout []Sink

func (f Fanout) PostMessage(msg Message) {
	for _, s := range f {
		if s != nil {
			s.PostMessage(msg)
		}
	}
}
