package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers for the durable per-device backend
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config holds everything the server and CLI need at startup
type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	JWTSecret   string `yaml:"jwt_secret"`

	Storage   StorageConfig   `yaml:"storage"`
	Run       RunConfig       `yaml:"run"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Firebase  FirebaseConfig  `yaml:"firebase"`

	GoogleMapsAPIKey string `yaml:"google_maps_api_key"`
}

// StorageConfig selects where per-device run state lives
type StorageConfig struct {
	Driver     string        `yaml:"driver"`
	SQLitePath string        `yaml:"sqlite_path"`
	RedisURL   string        `yaml:"redis_url"`
	IdleTTL    time.Duration `yaml:"session_idle_ttl"`
}

// RunConfig controls the operational day
type RunConfig struct {
	RolloverHour int    `yaml:"rollover_hour"`
	Timezone     string `yaml:"timezone"`
}

// OptimizerConfig points at the remote route optimizer
type OptimizerConfig struct {
	URL     string        `yaml:"url"`
	RPS     float64       `yaml:"rps"`
	Timeout time.Duration `yaml:"timeout"`
}

// FirebaseConfig holds FCM credentials, base64 takes precedence over a file
type FirebaseConfig struct {
	CredentialsBase64 string `yaml:"credentials_base64"`
	CredentialsFile   string `yaml:"credentials_file"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Port: "8080",
		Storage: StorageConfig{
			Driver:     DriverMemory,
			SQLitePath: "binbird.db",
			IdleTTL:    12 * time.Hour,
		},
		Run: RunConfig{
			RolloverHour: 4,
			Timezone:     "Local",
		},
		Optimizer: OptimizerConfig{
			RPS:     2,
			Timeout: 15 * time.Second,
		},
		Firebase: FirebaseConfig{
			CredentialsFile: "./firebase-service-account.json",
		},
	}
}

// Load reads .env, then the YAML file named by BINBIRD_CONFIG (if any),
// then environment overrides
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := Default()
	if path := os.Getenv("BINBIRD_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
		log.Printf("✅ Config file loaded: %s", path)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("PORT", &c.Port)
	str("DATABASE_URL", &c.DatabaseURL)
	str("APP_JWT_SECRET", &c.JWTSecret)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("SQLITE_PATH", &c.Storage.SQLitePath)
	str("REDIS_URL", &c.Storage.RedisURL)
	str("RUN_TIMEZONE", &c.Run.Timezone)
	str("ROUTE_OPTIMIZER_URL", &c.Optimizer.URL)
	str("GOOGLE_MAPS_API_KEY", &c.GoogleMapsAPIKey)
	str("FIREBASE_CREDENTIALS_BASE64", &c.Firebase.CredentialsBase64)
	str("FIREBASE_CREDENTIALS_FILE", &c.Firebase.CredentialsFile)

	if v, ok := lookup("RUN_ROLLOVER_HOUR"); ok && v != "" {
		hour, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RUN_ROLLOVER_HOUR %q: %w", v, err)
		}
		c.Run.RolloverHour = hour
	}
	if v, ok := lookup("ROUTE_OPTIMIZER_RPS"); ok && v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid ROUTE_OPTIMIZER_RPS %q: %w", v, err)
		}
		c.Optimizer.RPS = rps
	}
	if v, ok := lookup("SESSION_IDLE_TTL"); ok && v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SESSION_IDLE_TTL %q: %w", v, err)
		}
		c.Storage.IdleTTL = ttl
	}
	return nil
}

// Validate normalizes values and rejects combinations that cannot start
func (c *Config) Validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = DriverMemory
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("STORAGE_DRIVER=postgres requires DATABASE_URL")
		}
	case DriverRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("STORAGE_DRIVER=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Run.RolloverHour < 0 {
		c.Run.RolloverHour = 0
	}
	if c.Run.RolloverHour > 23 {
		c.Run.RolloverHour = 23
	}
	if c.Storage.IdleTTL <= 0 {
		c.Storage.IdleTTL = 12 * time.Hour
	}
	if c.Optimizer.RPS <= 0 {
		c.Optimizer.RPS = 2
	}
	if c.Port == "" {
		c.Port = "8080"
	}
	return nil
}

// Location resolves the configured timezone, falling back to local time
func (c Config) Location() *time.Location {
	if c.Run.Timezone == "" || strings.EqualFold(c.Run.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Run.Timezone)
	if err != nil {
		log.Printf("⚠️  Unknown RUN_TIMEZONE %q, using local time: %v", c.Run.Timezone, err)
		return time.Local
	}
	return loc
}
