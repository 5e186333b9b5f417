package realtime

import "sync"

type commandKind int

const (
	cmdJoin commandKind = iota
	cmdLeave
	cmdPublish
)

type command struct {
	kind commandKind
	conn *Conn
	msg  Message
}

// room is the actor for one project. All subscriber-set changes and
// deliveries go through queue and are applied by run in arrival order.
type room struct {
	id  string
	hub *Hub

	members map[*Conn]struct{} // guarded by Hub.mu

	mu     sync.Mutex // guards closed and sends on queue
	closed bool
	queue  chan command
}

func newRoom(id string, hub *Hub, queueSize int) *room {
	return &room{
		id:      id,
		hub:     hub,
		members: make(map[*Conn]struct{}),
		queue:   make(chan command, queueSize),
	}
}

// enqueue hands cmd to the actor. It reports false once the room is stopped.
func (r *room) enqueue(cmd command) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	r.queue <- cmd
	return true
}

// stop lets the actor drain its queue and exit.
func (r *room) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.closed {
		r.closed = true
		close(r.queue)
	}
}

func (r *room) run() {
	subs := make(map[*Conn]struct{})

	for cmd := range r.queue {
		switch cmd.kind {
		case cmdJoin:
			if !cmd.conn.closed() {
				subs[cmd.conn] = struct{}{}
			}

		case cmdLeave:
			delete(subs, cmd.conn)

		case cmdPublish:
			for c := range subs {
				switch c.offer(cmd.msg) {
				case offerDelivered:
					r.hub.metrics.Delivered.Inc()
				case offerClosed:
					delete(subs, c)
				case offerFull:
					delete(subs, c)
					r.hub.dropSlow(c)
				}
			}
		}
	}
}
