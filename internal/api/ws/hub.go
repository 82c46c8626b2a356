package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/domain"
)

var (
	ErrConnClosed    = errors.New("ws: connection closed")
	ErrSendQueueFull = errors.New("ws: send queue full")
)

// Conn is a client socket as seen by the hub.
type Conn interface {
	ID() string
	// Send enqueues an encoded frame for delivery. It must not block.
	Send(msg []byte) error
	// Close tears the socket down. It must not block.
	Close(reason string)
}

// Options tune socket handling.
type Options struct {
	SendQueue      int
	PingInterval   time.Duration
	OriginPatterns []string
}

func (o Options) withDefaults() Options {
	if o.SendQueue <= 0 {
		o.SendQueue = 256
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	return o
}

// PublishResult reports what a publish reached.
type PublishResult struct {
	Delivered int
	Dropped   int
}

type room struct {
	mu      sync.Mutex
	members map[string]Conn
	closed  bool
}

type membership struct {
	mu     sync.Mutex
	conn   Conn
	room   domain.Room
	joined bool
	gone   bool
}

// Hub fans board events out to the sockets joined to a room. The registry
// lock only guards the room and membership maps; membership changes and
// fan-out within a room are serialized by that room's own lock.
type Hub struct {
	opts Options

	mu          sync.RWMutex
	rooms       map[domain.Room]*room
	memberships map[string]*membership
}

// NewHub creates an empty hub.
func NewHub(opts Options) *Hub {
	return &Hub{
		opts:        opts.withDefaults(),
		rooms:       make(map[domain.Room]*room),
		memberships: make(map[string]*membership),
	}
}

// Register makes a connection known to the hub. Join and Leave ignore
// connections that are not registered.
func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.memberships[c.ID()]; !ok {
		h.memberships[c.ID()] = &membership{conn: c}
	}
}

// Join moves c into the room for (projectID, sprintID), leaving any other
// room first. A nil projectID is ignored.
func (h *Hub) Join(c Conn, projectID, sprintID *int64) {
	if projectID == nil {
		return
	}
	target := domain.RoomFor(*projectID, sprintID)

	m := h.membership(c.ID())
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gone || (m.joined && m.room == target) {
		return
	}
	if m.joined {
		h.removeFrom(m.room, m.conn)
	}
	h.addTo(target, m.conn)
	m.room, m.joined = target, true

	log.Debug().Str("conn_id", c.ID()).Str("room", target.String()).Msg("hub: join")
}

// Leave removes c from the room for (projectID, sprintID) if it is a member.
func (h *Hub) Leave(c Conn, projectID, sprintID *int64) {
	if projectID == nil {
		return
	}
	target := domain.RoomFor(*projectID, sprintID)

	m := h.membership(c.ID())
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.joined || m.room != target {
		return
	}
	h.removeFrom(m.room, m.conn)
	m.joined = false

	log.Debug().Str("conn_id", c.ID()).Str("room", target.String()).Msg("hub: leave")
}

// Drop forgets c and removes it from whatever room it was in.
func (h *Hub) Drop(c Conn) {
	h.mu.Lock()
	m, ok := h.memberships[c.ID()]
	delete(h.memberships, c.ID())
	h.mu.Unlock()
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gone = true
	if m.joined {
		h.removeFrom(m.room, m.conn)
		m.joined = false
	}
}

// Publish delivers (event, data) to every connection currently in target.
// It only enqueues; a connection that cannot accept the frame is dropped and
// closed so its client reconnects and re-joins.
func (h *Hub) Publish(target domain.Room, event string, data json.RawMessage) PublishResult {
	h.mu.RLock()
	r := h.rooms[target]
	h.mu.RUnlock()
	if r == nil {
		return PublishResult{}
	}

	msg, err := json.Marshal(domain.Frame{Event: event, Data: data})
	if err != nil {
		log.Warn().Err(err).Str("room", target.String()).Str("event", event).Msg("hub: encode frame")
		return PublishResult{}
	}

	var (
		res    PublishResult
		failed []Conn
	)
	r.mu.Lock()
	for _, c := range r.members {
		if sendErr := c.Send(msg); sendErr != nil {
			log.Warn().Err(sendErr).Str("conn_id", c.ID()).Str("room", target.String()).Msg("hub: delivery failed")
			failed = append(failed, c)
			continue
		}
		res.Delivered++
	}
	r.mu.Unlock()

	for _, c := range failed {
		h.Drop(c)
		c.Close("delivery failed")
	}
	res.Dropped = len(failed)
	return res
}

// RoomSize returns the number of connections in target.
func (h *Hub) RoomSize(target domain.Room) int {
	h.mu.RLock()
	r := h.rooms[target]
	h.mu.RUnlock()
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Snapshot returns member counts keyed by room name.
func (h *Hub) Snapshot() map[string]int {
	h.mu.RLock()
	rooms := make(map[domain.Room]*room, len(h.rooms))
	for k, v := range h.rooms {
		rooms[k] = v
	}
	h.mu.RUnlock()

	out := make(map[string]int, len(rooms))
	for k, r := range rooms {
		r.mu.Lock()
		if n := len(r.members); n > 0 {
			out[k.String()] = n
		}
		r.mu.Unlock()
	}
	return out
}

func (h *Hub) membership(id string) *membership {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.memberships[id]
}

func (h *Hub) addTo(target domain.Room, c Conn) {
	for {
		h.mu.Lock()
		r, ok := h.rooms[target]
		if !ok {
			r = &room{members: make(map[string]Conn)}
			h.rooms[target] = r
		}
		h.mu.Unlock()

		r.mu.Lock()
		if r.closed {
			// Reaped between lookup and lock; fetch the replacement.
			r.mu.Unlock()
			continue
		}
		r.members[c.ID()] = c
		r.mu.Unlock()
		return
	}
}

func (h *Hub) removeFrom(target domain.Room, c Conn) {
	h.mu.RLock()
	r := h.rooms[target]
	h.mu.RUnlock()
	if r == nil {
		return
	}

	r.mu.Lock()
	delete(r.members, c.ID())
	empty := len(r.members) == 0
	r.mu.Unlock()

	if empty {
		h.reap(target, r)
	}
}

// reap deletes an empty room. Lock order is registry, then room.
func (h *Hub) reap(target domain.Room, r *room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) == 0 && h.rooms[target] == r {
		r.closed = true
		delete(h.rooms, target)
	}
}
