package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 2048
)

// Client represents one browser tab connected to the run-lock socket
type Client struct {
	ID       string
	DeviceID string
	UserID   string
	conn     *websocket.Conn
	hub      *Hub
	send     chan []byte
	window   *NavWindow

	mu      sync.Mutex
	closed  bool
	dispose func()
}

// IncomingMessage represents a message from the tab
type IncomingMessage struct {
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
}

// OutgoingMessage is what the server tells the tab
type OutgoingMessage struct {
	Type string      `json:"type"`
	URL  string      `json:"url,omitempty"`
	Data interface{} `json:"data,omitempty"`
}

// NewClient creates a new WebSocket client for a device's tab at location
func NewClient(deviceID, userID, location string, conn *websocket.Conn, hub *Hub) *Client {
	c := &Client{
		ID:       uuid.New().String(),
		DeviceID: deviceID,
		UserID:   userID,
		conn:     conn,
		hub:      hub,
		send:     make(chan []byte, 256),
	}
	c.window = NewNavWindow(location, func(url string) {
		c.Send(OutgoingMessage{Type: "history_push", URL: url})
	})
	return c
}

// Window returns the tab's navigation window
func (c *Client) Window() *NavWindow { return c.window }

// SetDispose registers the function that tears down the tab's guard
func (c *Client) SetDispose(dispose func()) {
	c.mu.Lock()
	c.dispose = dispose
	c.mu.Unlock()
}

// Send queues a message for the tab, dropping it if the tab is gone or slow
func (c *Client) Send(msg OutgoingMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("❌ Failed to marshal %s message: %v", msg.Type, err)
		return
	}
	if !c.queue(data) {
		log.Printf("⚠️ Dropped %s message for device %s", msg.Type, c.DeviceID)
	}
}

func (c *Client) queue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump pumps navigation events from the tab into its window
func (c *Client) ReadPump() {
	defer func() {
		c.mu.Lock()
		dispose := c.dispose
		c.mu.Unlock()
		if dispose != nil {
			dispose()
		}
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Invalid message format: %v", err)
			continue
		}

		switch msg.Type {
		case "ping":
			c.Send(OutgoingMessage{Type: "pong", Data: time.Now().Format(time.RFC3339)})
		case "location":
			c.window.SetLocation(msg.URL)
		case "popstate":
			c.window.SetLocation(msg.URL)
			c.window.PopState()
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
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
				// Hub closed the channel
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
