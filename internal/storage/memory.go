package storage

import (
	"log"
	"strings"
	"sync"
	"time"

	"binbird-backend/internal/runstate"
)

// MemoryProvider keeps one in-process key-value area per scope. Areas that
// are not touched for idleTTL are dropped by a background sweep, the way a
// browser drops sessionStorage when the tab goes away.
type MemoryProvider struct {
	areas   map[string]*memoryArea
	mutex   sync.Mutex
	idleTTL time.Duration
	done    chan struct{}
	once    sync.Once
	now     func() time.Time
}

// memoryArea is guarded by the provider mutex
type memoryArea struct {
	items        map[string]string
	lastAccessed time.Time
}

// NewMemoryProvider creates a provider and starts its sweep. A non-positive
// idleTTL keeps areas forever.
func NewMemoryProvider(idleTTL time.Duration) *MemoryProvider {
	p := &MemoryProvider{
		areas:   make(map[string]*memoryArea),
		idleTTL: idleTTL,
		done:    make(chan struct{}),
		now:     time.Now,
	}
	if idleTTL > 0 {
		go p.cleanupIdle(sweepInterval(idleTTL))
	}
	return p
}

func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	if interval > time.Hour {
		interval = time.Hour
	}
	return interval
}

// Area returns the storage area for scope, creating it on first use. The
// handle resolves its scope on every call, so it keeps working after a
// sweep dropped the area underneath it.
func (p *MemoryProvider) Area(scope string) runstate.Storage {
	p.withArea(scope, func(*memoryArea) {})
	return &memoryStorage{provider: p, scope: scope}
}

// withArea runs fn on the live area for scope under the provider lock
func (p *MemoryProvider) withArea(scope string, fn func(area *memoryArea)) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	area, ok := p.areas[scope]
	if !ok {
		area = &memoryArea{items: make(map[string]string)}
		p.areas[scope] = area
	}
	area.lastAccessed = p.now()
	fn(area)
}

// Drop forgets a scope entirely
func (p *MemoryProvider) Drop(scope string) {
	p.mutex.Lock()
	delete(p.areas, scope)
	p.mutex.Unlock()
}

// DropPrefix forgets every scope starting with prefix and returns how many
// were dropped
func (p *MemoryProvider) DropPrefix(prefix string) int {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	dropped := 0
	for scope := range p.areas {
		if strings.HasPrefix(scope, prefix) {
			delete(p.areas, scope)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of live areas
func (p *MemoryProvider) Len() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.areas)
}

// Close stops the sweep
func (p *MemoryProvider) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

// Sweep removes areas idle for longer than the TTL and returns how many
// were removed
func (p *MemoryProvider) Sweep() int {
	if p.idleTTL <= 0 {
		return 0
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()

	now := p.now()
	removed := 0
	for scope, area := range p.areas {
		if now.Sub(area.lastAccessed) > p.idleTTL {
			delete(p.areas, scope)
			removed++
		}
	}
	return removed
}

func (p *MemoryProvider) cleanupIdle(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			if removed := p.Sweep(); removed > 0 {
				log.Printf("🗑️  Dropped %d idle session storage areas", removed)
			}
		}
	}
}

type memoryStorage struct {
	provider *MemoryProvider
	scope    string
}

func (s *memoryStorage) GetItem(key string) (string, bool, error) {
	var value string
	var ok bool
	s.provider.withArea(s.scope, func(area *memoryArea) {
		value, ok = area.items[key]
	})
	return value, ok, nil
}

func (s *memoryStorage) SetItem(key, value string) error {
	s.provider.withArea(s.scope, func(area *memoryArea) {
		area.items[key] = value
	})
	return nil
}

func (s *memoryStorage) RemoveItem(key string) error {
	s.provider.withArea(s.scope, func(area *memoryArea) {
		delete(area.items, key)
	})
	return nil
}
