package rotation

import (
	"context"
	"sync"
	"sync/atomic"
)

// Channel is an in-process, buffered RotationChannel. Posting never blocks:
// when the buffer is full the message is dropped and counted.
type Channel struct {
	name   string
	ch     chan Message
	ctx    context.Context
	mu     sync.RWMutex
	closed bool

	posted  atomic.Int64
	dropped atomic.Int64
}

// NewChannel creates a channel that stops delivering when ctx is done.
func NewChannel(ctx context.Context, name string, bufferSize int) *Channel {
	if name == "" {
		name = DefaultChannelName
	}
	return &Channel{
		name: name,
		ch:   make(chan Message, bufferSize),
		ctx:  ctx,
	}
}

func (c *Channel) Name() string { return c.name }

func (c *Channel) PostMessage(msg Message) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed || c.ctx.Err() != nil {
		c.dropped.Add(1)
		return
	}

	select {
	case c.ch <- msg:
		c.posted.Add(1)
	default:
		c.dropped.Add(1)
	}
}

// Receive blocks for the next message. It fails once ctx or the channel's
// own context is done, or with ErrClosed after Close drains.
func (c *Channel) Receive(ctx context.Context) (Message, error) {
	select {
	case msg, ok := <-c.ch:
		if !ok {
			return Message{}, ErrClosed
		}
		return msg, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-c.ctx.Done():
		return Message{}, c.ctx.Err()
	}
}

// TryReceive returns the next buffered message without waiting.
func (c *Channel) TryReceive() (Message, bool) {
	select {
	case msg, ok := <-c.ch:
		return msg, ok
	default:
		return Message{}, false
	}
}

// Close stops accepting posts. Buffered messages can still be received.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

func (c *Channel) Posted() int64  { return c.posted.Load() }
func (c *Channel) Dropped() int64 { return c.dropped.Load() }
func (c *Channel) QueueLength() int {
	return len(c.ch)
}
