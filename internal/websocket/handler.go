package websocket

import (
	"log"
	"net/http"

	"binbird-backend/internal/middleware"
	"binbird-backend/internal/runstate"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		return true
	},
}

// LockFunc reports whether navigation should stay locked for a device
type LockFunc func(identity middleware.DeviceIdentity) bool

// HandleRunLock upgrades the connection and keeps the tab from navigating
// back while the device has a run in progress. The tab reports its URL with
// ?url= and then sends location/popstate events.
func HandleRunLock(hub *Hub, locked LockFunc, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.GetDeviceFromContext(r)
		if !ok {
			log.Println("❌ No device identity for WebSocket connection")
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		// Token is optional; it only labels the connection
		userID := ""
		if claims, ok := middleware.GetUserFromContext(r); ok {
			userID = claims.UserID
		} else if tokenString := r.URL.Query().Get("token"); tokenString != "" {
			claims, err := middleware.ParseToken(tokenString, jwtSecret)
			if err != nil {
				log.Printf("❌ Invalid token in query parameter: %v", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			userID = claims.UserID
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("❌ WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(identity.DeviceID, userID, r.URL.Query().Get("url"), conn, hub)
		hub.register <- client

		go client.WritePump()

		dispose := runstate.NewBackNavigationGuard(
			client.Window(),
			func() bool { return locked(identity) },
			func() {
				client.Send(OutgoingMessage{Type: "navigation_unlocked"})
				log.Printf("🔓 Navigation unlocked for device %s", identity.DeviceID)
			},
		)
		client.SetDispose(dispose)

		go client.ReadPump()

		log.Printf("✅ Run-lock socket established for device %s", identity.DeviceID)
	}
}
