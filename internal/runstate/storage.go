package runstate

import (
	"log"
)

// Storage is a synchronous key-value area, the shape of a browser
// sessionStorage/localStorage
type Storage interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// Backend is a named storage area. A nil Storage means the backend is
// unavailable and is skipped.
type Backend struct {
	Name    string
	Storage Storage
}

// ActiveRunCookie is the flag cookie server-rendered pages read to know a
// run appears to be in progress
const ActiveRunCookie = "binbird-active-run"

// FlagCookie mirrors the "run active" flag somewhere cheap to read
type FlagCookie interface {
	SetActive(active bool)
}

// NopFlagCookie ignores flag updates (CLI, tests)
type NopFlagCookie struct{}

func (NopFlagCookie) SetActive(bool) {}

// replicated fans reads and writes out over backends in priority order
type replicated struct {
	name     string
	backends []Backend
}

// setAll writes value under key to every available backend and returns how
// many accepted it
func (r replicated) setAll(key, value string) int {
	written := 0
	for _, b := range r.backends {
		if b.Storage == nil {
			continue
		}
		if err := b.Storage.SetItem(key, value); err != nil {
			log.Printf("⚠️  [%s] write to %s backend failed: %v", r.name, b.Name, err)
			continue
		}
		written++
	}
	return written
}

// backfill writes value to every available backend ranked above index
func (r replicated) backfill(key, value string, index int) {
	for _, b := range r.backends[:index] {
		if b.Storage == nil {
			continue
		}
		if err := b.Storage.SetItem(key, value); err != nil {
			log.Printf("⚠️  [%s] back-fill of %s backend failed: %v", r.name, b.Name, err)
			continue
		}
		log.Printf("🔁 [%s] back-filled %s backend from %s", r.name, b.Name, r.backends[index].Name)
	}
}

// removeAll removes key from every available backend
func (r replicated) removeAll(key string) {
	for _, b := range r.backends {
		if b.Storage == nil {
			continue
		}
		if err := b.Storage.RemoveItem(key); err != nil {
			log.Printf("⚠️  [%s] remove from %s backend failed: %v", r.name, b.Name, err)
		}
	}
}

// get reads key from one backend, logging and swallowing errors
func (r replicated) get(b Backend, key string) (string, bool) {
	if b.Storage == nil {
		return "", false
	}
	value, ok, err := b.Storage.GetItem(key)
	if err != nil {
		log.Printf("⚠️  [%s] read from %s backend failed: %v", r.name, b.Name, err)
		return "", false
	}
	if !ok || value == "" {
		return "", false
	}
	return value, true
}
