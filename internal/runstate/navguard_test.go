package runstate

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWindow struct {
	mu        sync.Mutex
	location  string
	pushes    []string
	listeners map[int]func()
	nextID    int
}

func newFakeWindow(location string) *fakeWindow {
	return &fakeWindow{location: location, listeners: make(map[int]func())}
}

func (w *fakeWindow) Location() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.location
}

func (w *fakeWindow) PushState(url string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pushes = append(w.pushes, url)
}

func (w *fakeWindow) AddPopStateListener(fn func()) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.listeners[id] = fn
	return func() {
		w.mu.Lock()
		delete(w.listeners, id)
		w.mu.Unlock()
	}
}

func (w *fakeWindow) back() {
	w.mu.Lock()
	fns := make([]func(), 0, len(w.listeners))
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	w.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (w *fakeWindow) pushCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pushes)
}

func (w *fakeWindow) listenerCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.listeners)
}

func TestBackNavigationGuard_UnlockedFromTheStart(t *testing.T) {
	w := newFakeWindow("/run")
	unlocked := 0

	dispose := NewBackNavigationGuard(w, func() bool { return false }, func() { unlocked++ })
	dispose()

	assert.Equal(t, 1, unlocked)
	assert.Equal(t, 0, w.pushCount())
	assert.Equal(t, 0, w.listenerCount())
}

func TestBackNavigationGuard_HoldsUntilUnlocked(t *testing.T) {
	w := newFakeWindow("/run")
	locked := true
	unlocked := 0

	dispose := NewBackNavigationGuard(w, func() bool { return locked }, func() { unlocked++ })
	defer dispose()

	require.Equal(t, 1, w.pushCount(), "initial history entry")
	require.Equal(t, 1, w.listenerCount())

	w.back()
	w.back()
	assert.Equal(t, 3, w.pushCount())
	assert.Equal(t, 0, unlocked)

	locked = false
	w.back()
	assert.Equal(t, 3, w.pushCount())
	assert.Equal(t, 1, unlocked)
	assert.Equal(t, 0, w.listenerCount())

	w.back()
	assert.Equal(t, 1, unlocked)
}

func TestBackNavigationGuard_DisposeIsIdempotent(t *testing.T) {
	w := newFakeWindow("/run")
	unlocked := 0

	dispose := NewBackNavigationGuard(w, func() bool { return true }, func() { unlocked++ })
	dispose()
	dispose()

	assert.Equal(t, 0, w.listenerCount())
	w.back()
	assert.Equal(t, 1, w.pushCount())
	assert.Equal(t, 0, unlocked)
}

func TestBackNavigationGuard_NilOnUnlock(t *testing.T) {
	w := newFakeWindow("/run")
	locked := true

	dispose := NewBackNavigationGuard(w, func() bool { return locked }, nil)
	defer dispose()

	locked = false
	assert.NotPanics(t, w.back)
	assert.Equal(t, 0, w.listenerCount())
}
