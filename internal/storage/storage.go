package storage

import (
	"fmt"
	"log"

	"binbird-backend/internal/config"
	"binbird-backend/internal/metrics"
	"binbird-backend/internal/runstate"

	"github.com/jmoiron/sqlx"
)

// Provider hands out one storage area per scope
type Provider interface {
	Area(scope string) runstate.Storage
	Close() error
}

// Open creates the durable provider selected by cfg. db is only used by the
// postgres driver and may be nil otherwise.
func Open(cfg config.StorageConfig, db *sqlx.DB) (Provider, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		log.Println("⚠️  Using in-memory device storage (run state is lost on restart)")
		return NewMemoryProvider(0), nil
	case config.DriverSQLite:
		return OpenSQLite(cfg.SQLitePath)
	case config.DriverPostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres storage needs a database connection")
		}
		return NewSQLProvider(db), nil
	case config.DriverRedis:
		return OpenRedis(cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Instrument counts failures of s under the backend name
func Instrument(name string, s runstate.Storage) runstate.Storage {
	if s == nil {
		return nil
	}
	return &instrumented{name: name, next: s}
}

type instrumented struct {
	name string
	next runstate.Storage
}

func (i *instrumented) GetItem(key string) (string, bool, error) {
	value, ok, err := i.next.GetItem(key)
	if err != nil {
		metrics.StorageErrors.WithLabelValues(i.name, "get").Inc()
	}
	return value, ok, err
}

func (i *instrumented) SetItem(key, value string) error {
	err := i.next.SetItem(key, value)
	if err != nil {
		metrics.StorageErrors.WithLabelValues(i.name, "set").Inc()
	}
	return err
}

func (i *instrumented) RemoveItem(key string) error {
	err := i.next.RemoveItem(key)
	if err != nil {
		metrics.StorageErrors.WithLabelValues(i.name, "remove").Inc()
	}
	return err
}
