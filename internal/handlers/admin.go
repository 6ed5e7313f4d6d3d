package handlers

import (
	"log"
	"net/http"

	"binbird-backend/internal/middleware"
	"binbird-backend/internal/models"
	"binbird-backend/internal/runstate"
	"binbird-backend/internal/websocket"
	"binbird-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// prefixDropper is a session provider that can forget a device's areas
type prefixDropper interface {
	DropPrefix(prefix string) int
}

// ResetDeviceRun discards a device's plan and session everywhere the server
// keeps them: the durable area and every browser-session copy in memory
func ResetDeviceRun(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deviceID := chi.URLParam(r, "deviceID")
		if _, err := uuid.Parse(deviceID); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid device ID")
			return
		}

		identity := middleware.DeviceIdentity{DeviceID: deviceID}
		if env.Durable != nil {
			backends := []runstate.Backend{{Name: "local", Storage: env.Durable.Area(identity.DeviceScope())}}
			repo := runstate.NewRepository(backends, runstate.NopFlagCookie{}, env.Day, env.now)
			repo.ClearPlannedRun()
			repo.ClearRunSession()
		}

		dropped := 0
		if sessions, ok := env.Sessions.(prefixDropper); ok {
			dropped = sessions.DropPrefix(identity.SessionPrefix())
		}

		menu := models.RunMenuState{}
		if env.Hub != nil {
			env.Hub.BroadcastToDevice(deviceID, websocket.OutgoingMessage{Type: "run_state", Data: menu})
		}

		admin := ""
		if claims, ok := middleware.GetUserFromContext(r); ok {
			admin = claims.UserID
		}
		log.Printf("🧹 Run state of device %s reset by %s (%d session areas dropped)", deviceID, admin, dropped)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"device":           deviceID,
			"sessions_dropped": dropped,
			"menu":             menu,
		})
	}
}
