package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/katje/colorizer/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Client is a single WebSocket subscriber.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	server *Server

	closeOnce sync.Once
}

// trySend marshals and queues a message without blocking. Slow clients
// drop messages rather than stalling the broadcast loop.
func (c *Client) trySend(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		c.server.logger.Errorw("Failed to marshal message for client",
			logger.FieldClientID, c.id,
			logger.FieldError, err,
		)
		return
	}

	select {
	case c.send <- data:
	default:
		c.server.logger.Warnw("Client send buffer full, dropping message",
			logger.FieldClientID, c.id,
		)
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}

// readPump drains inbound traffic. The feed is one-directional; inbound
// frames only service the ping/pong keepalive.
func (c *Client) readPump() {
	defer func() {
		c.server.unregister <- c
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Warnw("WebSocket read error",
					logger.FieldClientID, c.id,
					logger.FieldError, err,
				)
			}
			return
		}
	}
}

// writePump pushes queued messages and keepalive pings to the peer.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
