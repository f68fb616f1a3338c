// Package transport adapts the use-case and dispatch layers to a
// gofiber/websocket/v2 connection. It replaces handlers/multiplayer.go's
// net/http-plus-nhooyr.io/websocket pump with the same read-pump /
// write-pump / buffered-send-channel shape, rebuilt on top of the
// fiber websocket middleware the rest of the teacher's handlers already
// standardize on, so the whole server runs behind one fiber.App instead
// of two HTTP stacks.
package transport

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

// Envelope is the wire shape for every inbound and outbound message,
// mirroring handlers/multiplayer.go's {type, payload} Message struct
// under the event/data names the dispatch layer's event table uses.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Connection wraps one live websocket, grounded directly on the
// teacher's Player struct fields (Conn, send channel, ctx/cancel,
// mutex) generalized to not assume a game-specific role — a Connection
// is host, player or spectator only as far as the registry says so.
type Connection struct {
	ID   string
	Conn *websocket.Conn

	send   chan Envelope
	closed chan struct{}
	once   sync.Once
}

// NewConnection wraps a just-upgraded websocket with its outbound send
// buffer.
func NewConnection(id string, conn *websocket.Conn) *Connection {
	return &Connection{
		ID:     id,
		Conn:   conn,
		send:   make(chan Envelope, sendBufferSize),
		closed: make(chan struct{}),
	}
}

// Send enqueues an outbound event. It never blocks on a slow reader: if
// the buffer is full the connection is assumed wedged and closed, the
// same backpressure policy the teacher's send channel implied by being
// bounded at all.
func (c *Connection) Send(event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("🔌 transport: failed to marshal %s for %s: %v", event, c.ID, err)
		return
	}
	select {
	case c.send <- Envelope{Event: event, Data: payload}:
	default:
		log.Printf("🔌 transport: send buffer full for %s, dropping connection", c.ID)
		c.Close()
	}
}

// Close closes the connection exactly once.
func (c *Connection) Close() {
	c.once.Do(func() {
		close(c.closed)
		_ = c.Conn.Close()
	})
}

// WritePump drains the send channel to the socket and pings on an
// interval, the same two jobs handlers/multiplayer.go's write pump did.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.closed:
			return
		case env, ok := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.Conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump reads inbound envelopes until the socket closes, handing
// each to handle. It owns the connection's read deadline and pong
// handler, mirroring the teacher's pump.
func (c *Connection) ReadPump(handle func(Envelope)) {
	defer c.Close()

	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := c.Conn.ReadJSON(&env); err != nil {
			return
		}
		handle(env)
	}
}
