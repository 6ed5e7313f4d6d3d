package main

import (
	"log"
	"net/http"

	"binbird-backend/internal/config"
	"binbird-backend/internal/database"
	"binbird-backend/internal/handlers"
	"binbird-backend/internal/metrics"
	"binbird-backend/internal/runstate"
	"binbird-backend/internal/services"
	"binbird-backend/internal/services/routing"
	"binbird-backend/internal/storage"
	"binbird-backend/internal/websocket"

	"github.com/jmoiron/sqlx"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 BINBIRD BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	log.Println("📂 Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Invalid configuration")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	log.Printf("✅ Configuration loaded (storage: %s, rollover: %02d:00)", cfg.Storage.Driver, cfg.Run.RolloverHour)

	// Database is optional unless it backs run state
	var db *sqlx.DB
	if cfg.DatabaseURL != "" {
		log.Println("🔌 Connecting to database...")
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			log.Println("❌ FATAL ERROR: Database connection failed")
			log.Printf("   Error: %v", err)
			log.Println("   This is usually caused by:")
			log.Println("   1. Wrong DATABASE_URL format")
			log.Println("   2. PostgreSQL service is down")
			log.Println("   3. Network connectivity issue")
			log.Println("   4. Invalid credentials")
			log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			log.Fatal(err)
		}
		defer db.Close()
		log.Println("✅ Database connection established")

		log.Println("🔄 Running database migrations...")
		if err := database.Migrate(db); err != nil {
			log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			log.Println("❌ FATAL ERROR: Database migrations failed")
			log.Printf("   Error: %v", err)
			log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			log.Fatal(err)
		}
		log.Println("✅ Database migrations completed")

		if err := database.SeedJobs(db); err != nil {
			log.Printf("⚠️  Job seeding failed: %v", err)
		}
	} else {
		log.Println("⚠️  DATABASE_URL not set - jobs, run history and push notifications disabled")
	}

	// Run state storage
	log.Printf("🗄️  Opening %s run-state storage...", cfg.Storage.Driver)
	durable, err := storage.Open(cfg.Storage, db)
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Run-state storage unavailable")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	defer durable.Close()
	sessions := storage.NewMemoryProvider(cfg.Storage.IdleTTL)
	defer sessions.Close()
	log.Println("✅ Run-state storage ready")

	// Route optimizer (remote with local fallback)
	cache := routing.NewResultCache(1000, 0)
	defer cache.Close()
	optimizer := routing.NewClient(routing.Options{
		URL:      cfg.Optimizer.URL,
		RPS:      cfg.Optimizer.RPS,
		Timeout:  cfg.Optimizer.Timeout,
		Cache:    cache,
		Fallback: services.NewRouteOptimizer(),
	})

	// Geocoding is optional
	var geocoder runstate.Geocoder
	if geocodingService, err := services.NewGeocodingService(cfg.GoogleMapsAPIKey); err != nil {
		log.Printf("⚠️  Geocoding disabled: %v", err)
	} else {
		geocoder = geocodingService
		log.Println("✅ Geocoding service initialized")
	}

	// Initialize Firebase Cloud Messaging
	// Supports both file path and base64-encoded credentials
	var pusher services.Pusher
	if db != nil {
		var fcmService *services.FCMService
		if cfg.Firebase.CredentialsBase64 != "" {
			fcmService, err = services.NewFCMServiceFromBase64(cfg.Firebase.CredentialsBase64)
		} else {
			fcmService, err = services.NewFCMService(cfg.Firebase.CredentialsFile)
		}
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM: %v (push notifications disabled)", err)
		} else {
			pusher = fcmService
			log.Println("✅ Firebase Cloud Messaging initialized")
		}
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	log.Println("✅ WebSocket hub started")

	metrics.RegisterDefault()

	env := &handlers.Env{
		DB:          db,
		Sessions:    sessions,
		Durable:     durable,
		DurableName: cfg.Storage.Driver,
		Optimizer:   optimizer,
		Geocoder:    geocoder,
		FCM:         pusher,
		Hub:         wsHub,
		Day:         runstate.NewOperationalDay(cfg.Run.RolloverHour, cfg.Location()),
	}
	router := handlers.NewRouter(env, cfg.JWTSecret)

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", cfg.Port)
	log.Println("🔌 Ready to accept requests!")
	log.Println("═══════════════════════════════════════════════════════════════════")

	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Server failed to start")
		log.Printf("   Error: %v", err)
		log.Printf("   Port: %s", cfg.Port)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
}
