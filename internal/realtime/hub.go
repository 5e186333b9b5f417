// Package realtime fans out committed task changes to the live connections
// viewing a project.
//
// Each project with at least one subscriber has a room actor: a goroutine
// draining a single queue of join, leave and publish commands. Events
// published to a room reach its subscribers in publish order. There is no
// backlog; a connection only sees events published after its join.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
)

// Errors returned by the hub
var (
	ErrHubClosed  = errors.New("realtime: hub closed")
	ErrConnClosed = errors.New("realtime: connection closed")
)

// Defaults used when Options leaves a field zero
const (
	DefaultSendBuffer = 64
	DefaultRoomQueue  = 256
)

// Authorizer decides whether a principal may receive a project's events.
type Authorizer interface {
	AuthorizeView(ctx context.Context, projectID, userID string) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, projectID, userID string) error

// AuthorizeView calls f.
func (f AuthorizerFunc) AuthorizeView(ctx context.Context, projectID, userID string) error {
	return f(ctx, projectID, userID)
}

// Options tunes queue sizes.
type Options struct {
	SendBuffer int // outbound queue per connection
	RoomQueue  int // ingress queue per room
}

// Hub is the room broadcaster.
type Hub struct {
	authorizer Authorizer
	logger     *slog.Logger
	metrics    *Metrics
	opts       Options

	mu     sync.Mutex
	rooms  map[string]*room
	conns  map[*Conn]struct{}
	closed bool

	// revocations counts Evict and CloseRoom calls. A join whose view check
	// overlapped one of them is authorized again before it subscribes.
	revocations uint64

	actors sync.WaitGroup
}

// NewHub creates a hub. Join consults authorizer before subscribing.
func NewHub(authorizer Authorizer, metrics *Metrics, logger *slog.Logger, opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	if opts.RoomQueue <= 0 {
		opts.RoomQueue = DefaultRoomQueue
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		authorizer: authorizer,
		logger:     logger,
		metrics:    metrics,
		opts:       opts,
		rooms:      make(map[string]*room),
		conns:      make(map[*Conn]struct{}),
	}
}

// Register creates a connection handle for an authenticated principal.
func (h *Hub) Register(userID string) *Conn {
	c := newConn(uuid.NewString(), userID, h.opts.SendBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		c.close()
		return c
	}
	h.conns[c] = struct{}{}
	h.metrics.Connections.Inc()
	return c
}

// Join subscribes c to the project's room after checking view rights.
// Joining a room the connection is already in is a no-op. Callers must
// commit membership removal before calling Evict or CloseRoom.
func (h *Hub) Join(ctx context.Context, c *Conn, projectID string) error {
	if projectID == "" {
		return fmt.Errorf("%w: project_id is required", domain.ErrValidation)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for h.authorizer != nil {
		seen := h.revocations
		h.mu.Unlock()
		err := h.authorizer.AuthorizeView(ctx, projectID, c.userID)
		h.mu.Lock()
		if err != nil {
			return err
		}
		if seen == h.revocations {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if h.closed {
		return ErrHubClosed
	}
	if _, ok := h.conns[c]; !ok || c.closed() {
		return ErrConnClosed
	}
	if _, ok := c.rooms[projectID]; ok {
		return nil
	}

	r, ok := h.rooms[projectID]
	if !ok {
		r = newRoom(projectID, h, h.opts.RoomQueue)
		h.rooms[projectID] = r
		h.metrics.Rooms.Inc()
		h.actors.Add(1)
		go func() {
			defer h.actors.Done()
			r.run()
		}()
	}

	r.members[c] = struct{}{}
	c.rooms[projectID] = struct{}{}
	r.enqueue(command{kind: cmdJoin, conn: c})

	h.logger.Debug("Connection joined room", "conn_id", c.id, "user_id", c.userID, "project_id", projectID)
	return nil
}

// Leave unsubscribes c from the project's room.
func (h *Hub) Leave(c *Conn, projectID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(c, projectID)
}

// Disconnect removes c from every room and closes it. Safe to call twice.
func (h *Hub) Disconnect(c *Conn) {
	h.mu.Lock()
	for projectID := range c.rooms {
		h.leaveLocked(c, projectID)
	}
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		h.metrics.Connections.Dec()
	}
	h.mu.Unlock()

	c.close()
}

// Announce publishes a task event to the project's room. Rooms without
// subscribers drop the event silently.
func (h *Hub) Announce(projectID string, event domain.TaskEvent) {
	h.metrics.Published.Inc()
	h.publish(projectID, Message{
		Type:      MessageTaskEvent,
		ProjectID: projectID,
		Event:     event,
	})
}

func (h *Hub) publish(projectID string, msg Message) {
	h.mu.Lock()
	r, ok := h.rooms[projectID]
	h.mu.Unlock()

	if !ok {
		return
	}
	// A room stopped since the lookup had no subscribers left
	r.enqueue(command{kind: cmdPublish, msg: msg})
}

// Evict removes userID's connections from the project's room.
func (h *Hub) Evict(projectID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.revocations++

	r, ok := h.rooms[projectID]
	if !ok {
		return
	}
	for c := range r.members {
		if c.userID == userID {
			h.leaveLocked(c, projectID)
		}
	}
}

// CloseRoom removes every connection from the project's room.
func (h *Hub) CloseRoom(projectID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.revocations++

	r, ok := h.rooms[projectID]
	if !ok {
		return
	}
	for c := range r.members {
		h.leaveLocked(c, projectID)
	}
}

// RoomsOf lists the rooms c is subscribed to.
func (h *Hub) RoomsOf(c *Conn) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	rooms := make([]string, 0, len(c.rooms))
	for projectID := range c.rooms {
		rooms = append(rooms, projectID)
	}
	sort.Strings(rooms)
	return rooms
}

// RoomCount returns the number of live rooms.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.rooms)
}

// Close disconnects every connection and waits for the room actors to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		h.Disconnect(c)
	}

	h.actors.Wait()
}

// leaveLocked must be called with h.mu held. Membership commands are queued
// under h.mu so the actor sees them in the same order as the hub state.
func (h *Hub) leaveLocked(c *Conn, projectID string) {
	r, ok := h.rooms[projectID]
	if !ok {
		return
	}
	if _, ok := r.members[c]; !ok {
		return
	}

	delete(r.members, c)
	delete(c.rooms, projectID)
	r.enqueue(command{kind: cmdLeave, conn: c})

	if len(r.members) == 0 {
		delete(h.rooms, projectID)
		h.metrics.Rooms.Dec()
		r.stop()
	}
}

// dropSlow disconnects a connection whose outbound queue is full. Called
// from a room actor, so the hub bookkeeping runs on another goroutine.
func (h *Hub) dropSlow(c *Conn) {
	h.metrics.Dropped.Inc()
	c.close()
	h.logger.Warn("Dropping slow connection", "conn_id", c.id, "user_id", c.userID)
	go h.Disconnect(c)
}
