package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub tracks open run-lock connections per device. A device can have
// several tabs open, so each device maps to a set of clients.
type Hub struct {
	// Registered clients (deviceID -> clients)
	clients map[string]map[*Client]bool

	// Inbound messages for a device
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for thread-safe client map access
	mu sync.RWMutex
}

// Message represents a message to broadcast to every tab of a device
type Message struct {
	DeviceID string
	Data     interface{}
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			tabs, ok := h.clients[client.DeviceID]
			if !ok {
				tabs = make(map[*Client]bool)
				h.clients[client.DeviceID] = tabs
			}
			tabs[client] = true
			count := len(tabs)
			h.mu.Unlock()
			log.Printf("✅ [WEBSOCKET] Client CONNECTED: device %s (%d open)", client.DeviceID, count)

		case client := <-h.unregister:
			h.mu.Lock()
			if tabs, ok := h.clients[client.DeviceID]; ok && tabs[client] {
				delete(tabs, client)
				if len(tabs) == 0 {
					delete(h.clients, client.DeviceID)
				}
				client.closeSend()
				log.Printf("🔴 [WEBSOCKET] Client DISCONNECTED: device %s (%d remaining)", client.DeviceID, len(tabs))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message.Data)
			if err != nil {
				log.Printf("❌ Failed to marshal message: %v", err)
				continue
			}

			h.mu.Lock()
			for client := range h.clients[message.DeviceID] {
				if !client.queue(data) {
					// Client buffer full, disconnect
					delete(h.clients[message.DeviceID], client)
					client.closeSend()
					log.Printf("⚠️ Client buffer full, disconnecting: device %s", message.DeviceID)
				}
			}
			if len(h.clients[message.DeviceID]) == 0 {
				delete(h.clients, message.DeviceID)
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToDevice sends a message to every open tab of a device
func (h *Hub) BroadcastToDevice(deviceID string, data interface{}) {
	h.broadcast <- &Message{
		DeviceID: deviceID,
		Data:     data,
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for _, tabs := range h.clients {
		count += len(tabs)
	}
	return count
}

// IsDeviceConnected checks if a device has at least one open tab
func (h *Hub) IsDeviceConnected(deviceID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[deviceID]) > 0
}
