package realtime

import (
	"sync"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
)

// MessageTaskEvent is the type of server-initiated task events.
const MessageTaskEvent = "task-event"

// Message is a server-initiated frame queued to a connection.
type Message struct {
	Type      string           `json:"type"`
	ProjectID string           `json:"project_id"`
	Event     domain.TaskEvent `json:"event"`
}

type offerResult int

const (
	offerDelivered offerResult = iota
	offerClosed
	offerFull
)

// Conn is a live connection handle owned by the Hub. Transports read
// Messages until Done is closed.
type Conn struct {
	id     string
	userID string

	send      chan Message
	done      chan struct{}
	closeOnce sync.Once

	rooms map[string]struct{} // guarded by Hub.mu
}

func newConn(id, userID string, buffer int) *Conn {
	return &Conn{
		id:     id,
		userID: userID,
		send:   make(chan Message, buffer),
		done:   make(chan struct{}),
		rooms:  make(map[string]struct{}),
	}
}

// ID returns the connection id.
func (c *Conn) ID() string { return c.id }

// UserID returns the principal the connection authenticated as.
func (c *Conn) UserID() string { return c.userID }

// Messages returns the outbound queue.
func (c *Conn) Messages() <-chan Message { return c.send }

// Done is closed once the connection has been disconnected.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Conn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// offer queues msg without blocking.
func (c *Conn) offer(msg Message) offerResult {
	if c.closed() {
		return offerClosed
	}
	select {
	case c.send <- msg:
		return offerDelivered
	default:
		return offerFull
	}
}
