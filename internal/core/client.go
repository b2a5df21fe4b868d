package core

import "sync"

// Conn is a live, authenticated connection as seen by the core layer.
type Conn interface {
	// ID is unique per connection.
	ID() string
	// UserID is the authenticated user bound to the connection.
	UserID() string
	// Send queues ev without blocking.
	Send(ev Event) error
	// Close marks the connection closed. It is idempotent.
	Close(reason string)
	// Done is closed once Close has been called.
	Done() <-chan struct{}
}

// Client is the Conn implementation backing a websocket session. The
// transport drains Events until Done, then flushes what is still queued.
type Client struct {
	id     string
	userID string
	events chan Event

	closeOnce sync.Once
	done      chan struct{}
	reason    string
}

var _ Conn = (*Client)(nil)

// NewClient constructs a client with an outbound buffer of the given size.
func NewClient(id, userID string, buffer int) *Client {
	if buffer <= 0 {
		buffer = 64
	}
	return &Client{
		id:     id,
		userID: userID,
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.userID }

// Events is the outbound queue.
func (c *Client) Events() <-chan Event { return c.events }

// Done is closed once Close has been called.
func (c *Client) Done() <-chan struct{} { return c.done }

// Send queues ev. It fails instead of blocking when the queue is full.
func (c *Client) Send(ev Event) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.events <- ev:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// Close marks the client closed with reason. Later calls are no-ops.
func (c *Client) Close(reason string) {
	c.closeOnce.Do(func() {
		c.reason = reason
		close(c.done)
	})
}

// CloseReason is the reason given to the first Close call. Read it after Done.
func (c *Client) CloseReason() string {
	<-c.done
	return c.reason
}
