package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// Client is one websocket connection. Events it sends are handled in order on its read goroutine.
type Client struct {
	hub     *Hub
	gateway *Gateway
	conn    *websocket.Conn
	send    chan []byte
	userID  string

	// guarded by hub.mu
	rooms        map[string]struct{}
	registeredAs string
}

func newClient(hub *Hub, gateway *Gateway, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:     hub,
		gateway: gateway,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		userID:  userID,
		rooms:   make(map[string]struct{}),
	}
}

// enqueue never blocks; false means the send queue is full.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// emit queues an event for this connection only.
func (c *Client) emit(event string, payload any) {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		log.Printf("[Realtime] failed to encode %s: %v", event, err)
		return
	}

	c.hub.mu.RLock()
	_, alive := c.hub.clients[c]
	ok := !alive || c.enqueue(frame)
	c.hub.mu.RUnlock()

	if !ok {
		c.hub.unregister(c)
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
		log.Printf("[Realtime] connection closed for user %s", c.userID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Realtime] read error for user %s: %v", c.userID, err)
			}
			return
		}

		var in inboundEvent
		if err := json.Unmarshal(data, &in); err != nil || in.Event == "" {
			c.emit(EventMessageError, errorPayload{Message: "Invalid event"})
			continue
		}
		c.gateway.dispatch(ctx, c, in)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
