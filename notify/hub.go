// Package notify fans events out to WebSocket subscribers grouped into
// logical rooms. Delivery is best-effort and at-most-once: there is no
// queue, no redelivery, and subscribers that are not connected when an
// event is published simply miss it.
package notify

import (
	"log"
	"sync"
)

// Room name helpers. Rooms are plain strings so any party interested in
// an entity can subscribe to it.
func UserRoom(id string) string       { return "user_" + id }
func RestaurantRoom(id string) string { return "restaurant_" + id }
func RiderRoom(id string) string      { return "rider_" + id }
func OrderRoom(id string) string      { return "order_" + id }

// Conn is one subscriber connection. The fiber websocket conn satisfies
// this directly.
type Conn interface {
	WriteJSON(v interface{}) error
}

// Event is the wire shape delivered to subscribers.
type Event struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// client pairs a connection with its write lock. Websocket conns forbid
// concurrent writers, and a conn joined to several rooms can be hit by
// overlapping publishes.
type client struct {
	conn  Conn
	mu    sync.Mutex
	rooms map[string]bool
}

func (c *client) write(msg Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

// Hub owns the connection-to-room membership table. It is constructed
// once in main and injected wherever publishing is needed; there is no
// package-level instance.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*client // room -> connID -> client
	conns map[string]*client            // connID -> client
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[string]*client),
		conns: make(map[string]*client),
	}
}

// Subscribe adds the connection to a room. A connection may join any
// number of rooms; all its writes share one lock.
func (h *Hub) Subscribe(connID, room string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cl := h.conns[connID]
	if cl == nil {
		cl = &client{conn: conn, rooms: make(map[string]bool)}
		h.conns[connID] = cl
	}
	cl.rooms[room] = true
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*client)
	}
	h.rooms[room][connID] = cl
}

func (h *Hub) Unsubscribe(connID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(connID, room)
}

// Drop removes the connection from every room it joined. Called on
// connection loss.
func (h *Hub) Drop(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cl := h.conns[connID]
	if cl == nil {
		return
	}
	for room := range cl.rooms {
		h.removeLocked(connID, room)
	}
}

func (h *Hub) removeLocked(connID, room string) {
	if members := h.rooms[room]; members != nil {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if cl := h.conns[connID]; cl != nil {
		delete(cl.rooms, room)
		if len(cl.rooms) == 0 {
			delete(h.conns, connID)
		}
	}
}

// Publish delivers the event to every current subscriber of the room.
// Write failures are logged and the dead connection dropped; they never
// fail the caller.
func (h *Hub) Publish(room, event string, payload interface{}) {
	h.mu.RLock()
	members := make(map[string]*client, len(h.rooms[room]))
	for id, cl := range h.rooms[room] {
		members[id] = cl
	}
	h.mu.RUnlock()

	msg := Event{Event: event, Payload: payload}
	for id, cl := range members {
		if err := cl.write(msg); err != nil {
			log.Printf("notify: dropping %s after write error on %s: %v", id, room, err)
			h.Drop(id)
		}
	}
}

// RoomSize reports current membership, used by metrics and tests.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ConnCount reports how many connections are registered.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
