// Package ws is the default Transport implementation: a
// gorilla/websocket connection adapted to the broker core's
// transport.Transport interface. The broker core never imports this
// package; it is the concrete adapter cmd/stompd wires in.
package ws

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/life-stream-dev/stomp-ws-broker/internal/transport"
)

// writeWait bounds a single Send call against a dead peer.
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Conn adapts a *websocket.Conn to transport.Transport. gorilla's Conn
// forbids concurrent writers, so Send serializes through writeMu — the
// heartbeat supervisor's beacon and the session's MESSAGE/CONNECTED
// writes both call Send concurrently.
type Conn struct {
	conn *websocket.Conn
	log  *slog.Logger

	writeMu sync.Mutex

	mu    sync.Mutex
	state transport.ReadyState
	h     transport.Handler
}

// NewConn wraps an already-upgraded *websocket.Conn. Bind must be
// called once before any data flows.
func NewConn(conn *websocket.Conn, log *slog.Logger) *Conn {
	return &Conn{conn: conn, log: log, state: transport.Connecting}
}

func (c *Conn) Bind(h transport.Handler) {
	c.mu.Lock()
	c.h = h
	c.state = transport.Open
	c.mu.Unlock()

	h.OnConnection()
	go c.readLoop()
}

// readLoop pumps inbound WebSocket messages to the bound handler until
// the connection fails or is closed.
func (c *Conn) readLoop() {
	defer c.teardown()

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.log != nil && websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Debug("websocket read error", "error", err)
			}
			c.h.OnError(err)
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		c.h.OnMessage(data)
	}
}

func (c *Conn) teardown() {
	c.mu.Lock()
	already := c.state == transport.Closed
	c.state = transport.Closed
	c.mu.Unlock()
	if already {
		return
	}
	c.h.OnClose()
}

// Send writes one WebSocket text message. data is either a serialized
// STOMP frame or the single-byte heartbeat LF.
func (c *Conn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) Close() error {
	c.mu.Lock()
	if c.state == transport.Closed {
		c.mu.Unlock()
		return nil
	}
	c.state = transport.Closing
	c.mu.Unlock()

	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return c.conn.Close()
}

func (c *Conn) ReadyState() transport.ReadyState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Acceptor upgrades incoming HTTP requests on one path to WebSocket
// connections and hands each to onAccept (typically broker.HandleConnection).
type Acceptor struct {
	Path     string
	OnAccept func(transport.Transport)
	Log      *slog.Logger
}

// ServeHTTP implements http.Handler so an Acceptor can be registered
// directly with an http.ServeMux.
func (a *Acceptor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if a.Log != nil {
			a.Log.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		}
		return
	}
	a.OnAccept(NewConn(conn, a.Log))
}
