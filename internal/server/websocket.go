package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/espmesh/internal/host"
	"github.com/muurk/espmesh/internal/logging"
	"github.com/muurk/espmesh/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = protocol.MaxMessageSize

	// Outgoing messages buffered per client
	sendQueueSize = 64
)

// client is one WebSocket connection. Only writePump writes to conn.
type client struct {
	conn       *websocket.Conn
	remoteAddr string
	send       chan []byte
	subscribed atomic.Bool

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(conn *websocket.Conn, remoteAddr string) *client {
	return &client{
		conn:       conn,
		remoteAddr: remoteAddr,
		send:       make(chan []byte, sendQueueSize),
		done:       make(chan struct{}),
	}
}

// Subscribed reports whether mesh events are pushed to this client
func (c *client) Subscribed() bool { return c.subscribed.Load() }

// SetSubscribed turns event pushes on or off
func (c *client) SetSubscribed(on bool) {
	if c.subscribed.Swap(on) != on {
		logging.Debug("Event subscription changed",
			zap.String("remote_addr", c.remoteAddr),
			zap.Bool("subscribed", on),
		)
	}
}

// enqueue queues data without blocking. It returns false when the queue is
// full or the client is closed.
func (c *client) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readPump decodes requests and queues their responses until the peer goes
// away.
func (c *client) readPump(b *host.Binding) {
	logging.LogConnection(c.remoteAddr, "websocket_opened")
	defer logging.LogConnection(c.remoteAddr, "websocket_closed")

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Info("Connection closed with error",
					zap.String("remote_addr", c.remoteAddr),
					zap.Error(err),
				)
			}
			return
		}
		if msgType != websocket.TextMessage {
			logging.Warn("Ignoring non-text WebSocket message",
				zap.String("remote_addr", c.remoteAddr),
				zap.Int("type", msgType),
			)
			continue
		}

		var resp *protocol.Response
		req, err := protocol.DecodeRequest(data)
		if err != nil {
			resp = &protocol.Response{Error: protocol.ErrorFromError(err)}
		} else {
			resp = protocol.Dispatch(b, c, c.remoteAddr, req)
		}

		out, err := protocol.Encode(resp)
		if err != nil {
			logging.Error("Failed to encode response",
				zap.String("remote_addr", c.remoteAddr),
				zap.Error(err),
			)
			continue
		}
		// Responses wait for queue space; only events are dropped
		select {
		case c.send <- out:
		case <-c.done:
			return
		}
	}
}

// writePump drains the send queue and keeps the connection alive with pings
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.Debug("Write failed",
					zap.String("remote_addr", c.remoteAddr),
					zap.Error(err),
				)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
