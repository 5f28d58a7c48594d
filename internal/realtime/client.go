package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameBytes  = 8 * 1024
	sendBufferSize = 256
)

// Client is one authenticated websocket connection. rooms and closed
// are owned by the hub and mutated only under the hub's lock. send is
// never closed; shutdown is signalled through done so a broadcast
// racing a disconnect can never hit a closed channel.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uuid.UUID

	send chan []byte
	done chan struct{}

	rooms  map[string]bool
	closed bool

	closeOnce sync.Once
}

func newClient(h *Hub, conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		hub:    h,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		rooms:  make(map[string]bool),
	}
}

// writePump owns all writes to the connection, including pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close detaches the client from the hub and tears the connection
// down. Safe to call from any goroutine, any number of times. A
// message broadcast concurrently with this at worst lands in a send
// buffer nobody drains.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.hub.remove(c)
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}
