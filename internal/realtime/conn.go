package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bdu-chat/campus-chat/internal/events"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = pongWait * 9 / 10
	maxFrameSize  = 16 * 1024
	sendQueueSize = 256
)

// Conn is one live websocket connection of an authenticated user. All
// writes go through a single writer goroutine fed by the send queue.
type Conn struct {
	id     string
	userID uint
	ws     *websocket.Conn
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	send   chan events.Envelope
}

func newConn(ws *websocket.Conn, userID uint, logger *slog.Logger) *Conn {
	id := uuid.NewString()
	return &Conn{
		id:     id,
		userID: userID,
		ws:     ws,
		logger: logger.With("conn_id", id, "user_id", userID),
		send:   make(chan events.Envelope, sendQueueSize),
	}
}

// ID returns the connection id.
func (c *Conn) ID() string { return c.id }

// Send enqueues env without blocking. It returns false when the queue is
// full or the connection is closing.
func (c *Conn) Send(env events.Envelope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- env:
		return true
	default:
		c.logger.Warn("Send queue full, dropping push", "type", env.Type)
		return false
	}
}

// close stops accepting pushes and lets the writer drain and exit.
func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writeLoop owns every write to ws and closes it on exit.
func (c *Conn) writeLoop(done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
		close(done)
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteJSON(env); err != nil {
				c.logger.Debug("Write failed", "error", err)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
