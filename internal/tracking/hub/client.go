package hub

import (
	"sync"
	"time"
)

// Conn is the push side of one realtime channel. *websocket.Conn satisfies it.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Pinger is implemented by connections that need keepalives.
type Pinger interface {
	Ping() error
}

// Identity is the pre-validated caller behind a connection.
type Identity struct {
	Subject string
	Role    string
}

// Client owns the outbound queue of one connection. A single goroutine
// writes to the connection, so messages leave in enqueue order.
type Client struct {
	ID       string
	Identity Identity

	conn         Conn
	send         chan interface{}
	done         chan struct{}
	once         sync.Once
	pingInterval time.Duration
	onError      func(*Client, error)
}

func newClient(id string, ident Identity, conn Conn, buffer int, ping time.Duration, onError func(*Client, error)) *Client {
	return &Client{
		ID:           id,
		Identity:     ident,
		conn:         conn,
		send:         make(chan interface{}, buffer),
		done:         make(chan struct{}),
		pingInterval: ping,
		onError:      onError,
	}
}

// Send queues msg without blocking. It returns false when the client is
// closed or its queue is full.
func (c *Client) Send(msg interface{}) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) writeLoop() {
	var tick <-chan time.Time
	pinger, canPing := c.conn.(Pinger)
	if canPing && c.pingInterval > 0 {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				c.onError(c, err)
				return
			}
		case <-tick:
			if err := pinger.Ping(); err != nil {
				c.onError(c, err)
				return
			}
		}
	}
}
