package handlers

import (
	"net/http"

	"binbird-backend/internal/metrics"
	"binbird-backend/internal/middleware"
	"binbird-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires every route of the API
func NewRouter(env *Env, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(metrics.Middleware)

	// CORS (credentials on: run state is keyed by cookies)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  func(r *http.Request, origin string) bool { return true },
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Device)
		r.Use(middleware.OptionalAuth(jwtSecret))

		// WebSocket endpoint for the back-navigation lock
		if env.Hub != nil {
			r.Get("/ws/run-lock", websocket.HandleRunLock(env.Hub, env.Locked, jwtSecret))
		}

		r.Route("/api", func(r chi.Router) {
			r.Get("/jobs", GetJobs(env))

			// Run lifecycle
			r.Post("/runs/plan", PlanRun(env))
			r.Get("/runs/plan", GetPlan(env))
			r.Delete("/runs/plan", DeletePlan(env))
			r.Post("/runs/start", StartRun(env))
			r.Post("/runs/jobs/{idx}/status", SetJobStatus(env))
			r.Post("/runs/jobs/{idx}/complete", CompleteJob(env))
			r.Post("/runs/jobs/{idx}/skip", SkipJob(env))
			r.Post("/runs/end", EndRun(env))

			// Run state views
			r.Get("/runs/menu", GetMenu(env))
			r.Get("/runs/session", GetSession(env))
			r.Get("/runs/summary", GetSummary(env))
			r.Get("/runs/history", GetRunHistory(env))

			// Start/end address lookup for the planning screen
			r.Post("/geocoding/forward", Geocode(env))
			r.Post("/geocoding/forward/batch", BatchGeocode(env))
			r.Post("/geocoding/reverse", ReverseGeocode(env))

			// Push notifications (require authentication)
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(jwtSecret))
				r.Post("/devices/fcm-token", RegisterFCMToken(env))
			})

			// Operator reset of a stuck device
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(jwtSecret))
				r.Use(middleware.RequireRole("admin"))
				r.Delete("/admin/devices/{deviceID}/run", ResetDeviceRun(env))
			})
		})
	})

	return r
}
