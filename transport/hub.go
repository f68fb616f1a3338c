package transport

import (
	"sync"

	"quizrealm/domain"
)

// Hub tracks which connections belong to which room so a use-case
// result can be fanned out as a broadcast, generalizing the teacher's
// package-level `players map[*websocket.Conn]*Player` plus per-room
// iteration into an explicit room -> connections index.
type Hub struct {
	mu    sync.RWMutex
	byID  map[string]*Connection
	byPIN map[domain.PIN]map[string]struct{}
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{
		byID:  make(map[string]*Connection),
		byPIN: make(map[domain.PIN]map[string]struct{}),
	}
}

// Register adds conn to the hub, not yet bound to any room.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byID[conn.ID] = conn
}

// Join binds a connection to a room's broadcast group.
func (h *Hub) Join(pin domain.PIN, connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.byPIN[pin]
	if !ok {
		set = make(map[string]struct{})
		h.byPIN[pin] = set
	}
	set[connectionID] = struct{}{}
}

// Leave unbinds a connection from a room without closing it.
func (h *Hub) Leave(pin domain.PIN, connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.byPIN[pin]; ok {
		delete(set, connectionID)
		if len(set) == 0 {
			delete(h.byPIN, pin)
		}
	}
}

// Unregister removes a connection entirely, from every room it was in.
func (h *Hub) Unregister(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.byID, connectionID)
	for pin, set := range h.byPIN {
		delete(set, connectionID)
		if len(set) == 0 {
			delete(h.byPIN, pin)
		}
	}
}

// Send delivers event to a single connection by ID, if it's still
// registered.
func (h *Hub) Send(connectionID, event string, data interface{}) {
	h.mu.RLock()
	conn, ok := h.byID[connectionID]
	h.mu.RUnlock()
	if ok {
		conn.Send(event, data)
	}
}

// BroadcastToRoom delivers event to every connection currently bound to
// pin. Implements cleanup.Broadcaster and dispatch.Hub.
func (h *Hub) BroadcastToRoom(pin domain.PIN, event string, data interface{}) {
	h.mu.RLock()
	set := h.byPIN[pin]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.Send(id, event, data)
	}
}

// DropRoomSockets closes every connection bound to pin and removes the
// room's broadcast group entirely, used when a room is torn down.
func (h *Hub) DropRoomSockets(pin domain.PIN) {
	h.mu.Lock()
	set := h.byPIN[pin]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	delete(h.byPIN, pin)
	conns := make([]*Connection, 0, len(ids))
	for _, id := range ids {
		if c, ok := h.byID[id]; ok {
			conns = append(conns, c)
		}
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
