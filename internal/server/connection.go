package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/gravitas-games/hexrange/internal/network"
	"github.com/gravitas-games/hexrange/pkg/logger"
	"github.com/gravitas-games/hexrange/pkg/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// Connection is a websocket client issuing hex queries
type Connection struct {
	ws     *websocket.Conn
	server *Server
	client *models.Client
	log    *logrus.Entry

	// Buffered channel for outbound messages
	send chan []byte

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

// NewConnection creates a connection for an authenticated client
func NewConnection(ws *websocket.Conn, server *Server, client *models.Client) *Connection {
	client.ConnectedAt = time.Now()
	return &Connection{
		ws:     ws,
		server: server,
		client: client,
		log:    logger.Log.WithField("client", client.Username),
		send:   make(chan []byte, 256),
	}
}

// Handle manages the connection lifecycle
func (c *Connection) Handle() {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump()

	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeWelcome,
		Payload: network.WelcomePayload{
			ClientID:    c.client.ID,
			Username:    c.client.Username,
			SizeX:       c.server.geom.SizeX,
			SizeY:       c.server.geom.SizeY,
			Orientation: c.server.geom.Orientation.String(),
		},
	})

	c.readPump() // Blocking
}

// readPump pumps messages from the WebSocket connection to the server
func (c *Connection) readPump() {
	defer c.Close()

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("WebSocket read error")
			}
			return
		}

		var clientMsg network.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			c.log.WithError(err).Debug("Failed to parse client message")
			c.SendError("invalid_message", "Failed to parse message")
			continue
		}

		c.handleMessage(&clientMsg)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.WithError(err).Debug("WebSocket write error")
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.server.ctx.Done():
			return
		}
	}
}

// handleMessage routes messages to appropriate handlers
func (c *Connection) handleMessage(msg *network.ClientMessage) {
	c.log.WithField("type", msg.Type).Debug("Received message")

	switch msg.Type {
	case network.MsgTypeRange:
		c.handleRange(msg.Payload)

	case network.MsgTypeRing:
		c.handleRing(msg.Payload)

	case network.MsgTypePing:
		c.SendMessage(&network.ServerMessage{
			Type:    network.MsgTypePong,
			Payload: map[string]interface{}{"timestamp": time.Now().Unix()},
		})

	default:
		c.SendError("unknown_message_type", "Unknown message type: "+msg.Type)
	}
}

func (c *Connection) handleRange(payload json.RawMessage) {
	var p network.RangePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.SendError("invalid_range", "Invalid range payload")
		return
	}
	res, err := c.server.rangeQuery(p)
	if err != nil {
		c.SendError(errorCode(err), err.Error())
		return
	}
	c.SendMessage(&network.ServerMessage{Type: network.MsgTypeRangeResult, Payload: res})
}

func (c *Connection) handleRing(payload json.RawMessage) {
	var p network.RingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.SendError("invalid_ring", "Invalid ring payload")
		return
	}
	res, err := c.server.ringQuery(p)
	if err != nil {
		c.SendError(errorCode(err), err.Error())
		return
	}
	c.SendMessage(&network.ServerMessage{Type: network.MsgTypeRingResult, Payload: res})
}

// SendMessage queues a message for the client; it is dropped when the buffer is full
func (c *Connection) SendMessage(msg *network.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.WithError(err).Warn("Failed to marshal message")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Warn("Send buffer full, dropping message")
	}
}

// SendError sends an error message to the client
func (c *Connection) SendError(code, message string) {
	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeError,
		Payload: network.ErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}

// Close stops the write pump and closes the socket. Safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		c.ws.Close()
	})
}
