package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"binbird-backend/internal/runstate"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Schema creates the key-value table. It is valid for both PostgreSQL
// and SQLite.
const Schema = `
	CREATE TABLE IF NOT EXISTS device_storage (
		scope TEXT NOT NULL,
		item_key TEXT NOT NULL,
		item_value TEXT NOT NULL,
		updated_at BIGINT NOT NULL,
		PRIMARY KEY (scope, item_key)
	);

	CREATE INDEX IF NOT EXISTS idx_device_storage_updated ON device_storage(updated_at);
`

// SQLProvider stores every scope in the device_storage table
type SQLProvider struct {
	db    *sqlx.DB
	owned bool
}

// NewSQLProvider uses an existing connection. The caller owns db and is
// responsible for running Schema (database.Migrate does).
func NewSQLProvider(db *sqlx.DB) *SQLProvider {
	return &SQLProvider{db: db}
}

// OpenSQLite opens (or creates) a SQLite file and ensures the schema
func OpenSQLite(path string) (*SQLProvider, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create device_storage table: %w", err)
	}
	log.Printf("✅ SQLite run-state storage ready: %s", path)
	return &SQLProvider{db: db, owned: true}, nil
}

// Area returns the storage area for scope
func (p *SQLProvider) Area(scope string) runstate.Storage {
	return &sqlStorage{db: p.db, scope: scope}
}

// Scopes lists every scope holding at least one key
func (p *SQLProvider) Scopes() ([]string, error) {
	var scopes []string
	err := p.db.Select(&scopes, `SELECT DISTINCT scope FROM device_storage ORDER BY scope`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scopes: %w", err)
	}
	return scopes, nil
}

// Close closes the connection if the provider opened it
func (p *SQLProvider) Close() error {
	if p.owned {
		return p.db.Close()
	}
	return nil
}

type sqlStorage struct {
	db    *sqlx.DB
	scope string
}

func (s *sqlStorage) GetItem(key string) (string, bool, error) {
	var value string
	query := s.db.Rebind(`SELECT item_value FROM device_storage WHERE scope = ? AND item_key = ?`)
	err := s.db.Get(&value, query, s.scope, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (s *sqlStorage) SetItem(key, value string) error {
	query := s.db.Rebind(`
		INSERT INTO device_storage (scope, item_key, item_value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (scope, item_key) DO UPDATE SET
			item_value = excluded.item_value,
			updated_at = excluded.updated_at
	`)
	if _, err := s.db.Exec(query, s.scope, key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *sqlStorage) RemoveItem(key string) error {
	query := s.db.Rebind(`DELETE FROM device_storage WHERE scope = ? AND item_key = ?`)
	if _, err := s.db.Exec(query, s.scope, key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}
