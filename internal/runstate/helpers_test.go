package runstate

import (
	"errors"
	"sync"
	"time"
)

var errBackendDown = errors.New("backend down")

// mapStorage is an in-memory Storage that can be told to fail
type mapStorage struct {
	mu      sync.Mutex
	items   map[string]string
	failGet bool
	failSet bool
}

func newMapStorage() *mapStorage {
	return &mapStorage{items: make(map[string]string)}
}

func (s *mapStorage) GetItem(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return "", false, errBackendDown
	}
	value, ok := s.items[key]
	return value, ok, nil
}

func (s *mapStorage) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet {
		return errBackendDown
	}
	s.items[key] = value
	return nil
}

func (s *mapStorage) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *mapStorage) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[key]
	return ok
}

// recordingCookie remembers every SetActive call
type recordingCookie struct {
	calls []bool
}

func (c *recordingCookie) SetActive(active bool) { c.calls = append(c.calls, active) }

func (c *recordingCookie) last() (bool, bool) {
	if len(c.calls) == 0 {
		return false, false
	}
	return c.calls[len(c.calls)-1], true
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func utcDay() OperationalDay { return NewOperationalDay(4, time.UTC) }

// mustTime parses an RFC3339 timestamp
func mustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}
