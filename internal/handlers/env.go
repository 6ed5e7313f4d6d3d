package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"binbird-backend/internal/database"
	"binbird-backend/internal/middleware"
	"binbird-backend/internal/models"
	"binbird-backend/internal/runstate"
	"binbird-backend/internal/services"
	"binbird-backend/internal/storage"
	"binbird-backend/internal/websocket"
	"binbird-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
)

// Env carries the shared dependencies of the run handlers. DB, FCM and Hub
// are optional.
type Env struct {
	DB          *sqlx.DB
	Sessions    storage.Provider
	Durable     storage.Provider
	DurableName string
	Optimizer   runstate.Optimizer
	Geocoder    runstate.Geocoder
	FCM         services.Pusher
	Hub         *websocket.Hub
	Day         runstate.OperationalDay
	Now         func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// backends returns the storage areas of a device in priority order:
// the browser session first, then the durable per-device area
func (e *Env) backends(identity middleware.DeviceIdentity) []runstate.Backend {
	var backends []runstate.Backend
	if e.Sessions != nil {
		backends = append(backends, runstate.Backend{
			Name:    "session",
			Storage: storage.Instrument("session", e.Sessions.Area(identity.SessionScope())),
		})
	}
	if e.Durable != nil {
		name := e.DurableName
		if name == "" {
			name = "local"
		}
		backends = append(backends, runstate.Backend{
			Name:    name,
			Storage: storage.Instrument(name, e.Durable.Area(identity.DeviceScope())),
		})
	}
	return backends
}

func (e *Env) repository(identity middleware.DeviceIdentity, cookie runstate.FlagCookie) *runstate.StoreRepository {
	return runstate.NewRepository(e.backends(identity), cookie, e.Day, e.now)
}

// runner builds the run state machine for the device behind r. The flag
// cookie is written to w, so it must be called before the response body.
func (e *Env) runner(w http.ResponseWriter, r *http.Request) (*runstate.Runner, middleware.DeviceIdentity, bool) {
	identity, ok := middleware.GetDeviceFromContext(r)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "Missing device identity")
		return nil, identity, false
	}

	cfg := runstate.RunnerConfig{
		Repository: e.repository(identity, HTTPFlagCookie{W: w}),
		Optimizer:  e.Optimizer,
		Geocoder:   e.Geocoder,
		Day:        e.Day,
		Now:        e.now,
	}

	var userID *string
	if claims, ok := middleware.GetUserFromContext(r); ok {
		userID = &claims.UserID
	}
	if e.DB != nil {
		cfg.Recorder = database.HistoryRecorder{DB: e.DB, DeviceID: identity.DeviceID, UserID: userID}
		if e.FCM != nil {
			label := ""
			if claims, ok := middleware.GetUserFromContext(r); ok && claims.Email != "" {
				label = claims.Email
			}
			cfg.Notifier = services.NewRunNotifier(e.FCM, database.FCMTokens{DB: e.DB}, label)
		}
	}
	if e.Hub != nil {
		hub := e.Hub
		cfg.OnChange = func(menu models.RunMenuState) {
			hub.BroadcastToDevice(identity.DeviceID, websocket.OutgoingMessage{Type: "run_state", Data: menu})
		}
	}

	return runstate.NewRunner(cfg), identity, true
}

// Locked reports whether a device's run state should keep navigation locked
func (e *Env) Locked(identity middleware.DeviceIdentity) bool {
	repo := e.repository(identity, runstate.NopFlagCookie{})
	return runstate.DeriveRunMenuState(repo.ReadPlannedRun(), repo.ReadRunSession()).LockNavigation
}

// HTTPFlagCookie mirrors the active-run flag into a long-lived cookie
type HTTPFlagCookie struct {
	W http.ResponseWriter
}

// SetActive sets or clears the flag cookie
func (c HTTPFlagCookie) SetActive(active bool) {
	cookie := &http.Cookie{
		Name:     runstate.ActiveRunCookie,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
	if active {
		cookie.Value = "1"
		cookie.MaxAge = 365 * 24 * 60 * 60
	} else {
		cookie.MaxAge = -1
	}
	http.SetCookie(c.W, cookie)
}

// respondRunError maps run state machine errors to HTTP statuses
func respondRunError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, runstate.ErrNoPlannedRun):
		status = http.StatusNotFound
	case errors.Is(err, runstate.ErrJobIndexOutOfRange):
		status = http.StatusNotFound
	case errors.Is(err, runstate.ErrInvalidTransition), errors.Is(err, runstate.ErrRunInProgress):
		status = http.StatusConflict
	case errors.Is(err, runstate.ErrNoJobs), errors.Is(err, runstate.ErrMissingCoordinates):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, runstate.ErrPlanNotPersisted):
		status = http.StatusServiceUnavailable
	default:
		// Optimizer and geocoder failures
		log.Printf("❌ Run request failed: %v", err)
		status = http.StatusBadGateway
	}
	utils.RespondError(w, status, err.Error())
}
